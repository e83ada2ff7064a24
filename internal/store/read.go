package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/eigen/internal/ir"
	"github.com/roach88/eigen/internal/queryir"
	"github.com/roach88/eigen/internal/querysql"
)

// sendFields is the column order scanSend expects.
var sendFields = []string{
	"id", "run_token", "kind", "receiver", "message", "function",
	"args", "depth", "seq", "bundle_hash", "engine_version", "ir_version",
}

var sendColumns = strings.Join(sendFields, ", ")

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadRun returns all sends and replies recorded under a run token.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns empty slices (not nil) if no records exist for the run token.
func (s *Store) ReadRun(ctx context.Context, runToken string) ([]ir.Send, []ir.Reply, error) {
	sends, err := s.readRunSends(ctx, runToken)
	if err != nil {
		return nil, nil, err
	}

	replies, err := s.readRunReplies(ctx, runToken)
	if err != nil {
		return nil, nil, err
	}

	return sends, replies, nil
}

func (s *Store) readRunSends(ctx context.Context, runToken string) ([]ir.Send, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sendColumns+`
		FROM sends
		WHERE run_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query sends: %w", err)
	}
	return collectSends(rows)
}

func (s *Store) readRunReplies(ctx context.Context, runToken string) ([]ir.Reply, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.send_id, r.outcome, r.result, r.error, r.seq
		FROM replies r
		JOIN sends s ON r.send_id = s.id
		WHERE s.run_token = ?
		ORDER BY r.seq ASC, r.id COLLATE BINARY ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query replies: %w", err)
	}
	defer rows.Close()

	replies := []ir.Reply{}
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replies: %w", err)
	}
	return replies, nil
}

// ReadSendsByMessage returns every send of the named message across all runs.
func (s *Store) ReadSendsByMessage(ctx context.Context, message string) ([]ir.Send, error) {
	return s.FindSends(ctx, queryir.Equals{Field: "message", Value: ir.IRString(message)}, nil)
}

// SendQuery builds the query FindSends runs. filter applies to sends and
// replyFilter to their replies; a non-nil replyFilter joins the two
// tables, so unanswered sends drop out.
func SendQuery(filter, replyFilter queryir.Predicate) queryir.Query {
	sends := queryir.Select{From: queryir.TableSends, Fields: sendFields, Filter: filter}
	if replyFilter == nil {
		return sends
	}
	return queryir.Join{
		Left:  sends,
		Right: queryir.Select{From: queryir.TableReplies, Filter: replyFilter},
		On:    queryir.JoinKey{Left: "id", Right: "send_id"},
	}
}

// FindSends returns the sends matching the filters across all runs,
// ordered by seq. Both filters may be nil.
func (s *Store) FindSends(ctx context.Context, filter, replyFilter queryir.Predicate) ([]ir.Send, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(SendQuery(filter, replyFilter))
	if err != nil {
		return nil, fmt.Errorf("compile send query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query sends: %w", err)
	}
	return collectSends(rows)
}

// ReadSend retrieves a single send by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSend(ctx context.Context, id string) (ir.Send, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sendColumns+`
		FROM sends
		WHERE id = ?
	`, id)
	return scanSend(row)
}

// ReadReply retrieves the reply to a send.
// Returns sql.ErrNoRows if the send has no reply.
func (s *Store) ReadReply(ctx context.Context, sendID string) (ir.Reply, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, send_id, outcome, result, error, seq
		FROM replies
		WHERE send_id = ?
	`, sendID)
	return scanReply(row)
}

func collectSends(rows *sql.Rows) ([]ir.Send, error) {
	defer rows.Close()

	sends := []ir.Send{}
	for rows.Next() {
		send, err := scanSend(rows)
		if err != nil {
			return nil, err
		}
		sends = append(sends, send)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sends: %w", err)
	}
	return sends, nil
}

func scanSend(row rowScanner) (ir.Send, error) {
	var send ir.Send
	var argsJSON string

	err := row.Scan(
		&send.ID,
		&send.RunToken,
		&send.Kind,
		&send.Receiver,
		&send.Message,
		&send.Function,
		&argsJSON,
		&send.Depth,
		&send.Seq,
		&send.BundleHash,
		&send.EngineVersion,
		&send.IRVersion,
	)
	if err != nil {
		return ir.Send{}, fmt.Errorf("scan send: %w", err)
	}

	send.Args, err = unmarshalArgs(argsJSON)
	if err != nil {
		return ir.Send{}, fmt.Errorf("scan send %s: %w", send.ID, err)
	}
	return send, nil
}

func scanReply(row rowScanner) (ir.Reply, error) {
	var reply ir.Reply
	var resultJSON string

	err := row.Scan(
		&reply.ID,
		&reply.SendID,
		&reply.Outcome,
		&resultJSON,
		&reply.Error,
		&reply.Seq,
	)
	if err != nil {
		return ir.Reply{}, fmt.Errorf("scan reply: %w", err)
	}

	reply.Result, err = unmarshalResult(resultJSON)
	if err != nil {
		return ir.Reply{}, fmt.Errorf("scan reply %s: %w", reply.ID, err)
	}
	return reply, nil
}
