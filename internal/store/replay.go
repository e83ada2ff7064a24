package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/eigen/internal/ir"
)

// RunState summarizes one recorded run.
type RunState struct {
	RunToken     string
	Sends        []ir.Send
	Replies      []ir.Reply
	LastSeq      int64
	PendingCount int  // sends without a reply, e.g. a run cut short mid-dispatch
	IsComplete   bool // every send has its reply
}

// GetRunState reads a run and reports whether every send was answered.
func (s *Store) GetRunState(ctx context.Context, runToken string) (RunState, error) {
	state := RunState{RunToken: runToken}

	sends, replies, err := s.ReadRun(ctx, runToken)
	if err != nil {
		return state, fmt.Errorf("get run state: %w", err)
	}
	state.Sends = sends
	state.Replies = replies

	replied := make(map[string]bool, len(replies))
	for _, r := range replies {
		replied[r.SendID] = true
		state.LastSeq = max(state.LastSeq, r.Seq)
	}
	for _, snd := range sends {
		state.LastSeq = max(state.LastSeq, snd.Seq)
		if !replied[snd.ID] {
			state.PendingCount++
		}
	}
	state.IsComplete = state.PendingCount == 0
	return state, nil
}

// ReadRunEvents returns a run as one stream of sends and replies in seq order.
// This is the order the engine emitted them in, so nested dispatch reads as a
// properly bracketed sequence.
func (s *Store) ReadRunEvents(ctx context.Context, runToken string) ([]RunEvent, error) {
	sends, replies, err := s.ReadRun(ctx, runToken)
	if err != nil {
		return nil, err
	}

	events := make([]RunEvent, 0, len(sends)+len(replies))
	for i := range sends {
		events = append(events, RunEvent{
			Type: EventSend,
			Seq:  sends[i].Seq,
			ID:   sends[i].ID,
			Send: &sends[i],
		})
	}
	for i := range replies {
		events = append(events, RunEvent{
			Type:  EventReply,
			Seq:   replies[i].Seq,
			ID:    replies[i].ID,
			Reply: &replies[i],
		})
	}

	sortRunEvents(events)
	return events, nil
}

// RunEvent is a single event of a run (a send or a reply).
type RunEvent struct {
	Type  RunEventType
	Seq   int64
	ID    string
	Send  *ir.Send
	Reply *ir.Reply
}

// RunEventType distinguishes sends from replies.
type RunEventType int

const (
	EventSend RunEventType = iota
	EventReply
)

// String returns the event type as a string.
func (t RunEventType) String() string {
	switch t {
	case EventSend:
		return "send"
	case EventReply:
		return "reply"
	default:
		return "unknown"
	}
}

// sortRunEvents orders by seq, then sends before replies, then by ID.
func sortRunEvents(events []RunEvent) {
	slices.SortStableFunc(events, func(a, b RunEvent) int {
		if a.Seq != b.Seq {
			if a.Seq < b.Seq {
				return -1
			}
			return 1
		}
		if a.Type != b.Type {
			return int(a.Type) - int(b.Type)
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// GetLastSeq returns the highest seq number used in the store.
// A recorder appending to an existing database resumes from here.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var sendSeq, replySeq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM sends`).Scan(&sendSeq); err != nil {
		return 0, fmt.Errorf("get last seq from sends: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM replies`).Scan(&replySeq); err != nil {
		return 0, fmt.Errorf("get last seq from replies: %w", err)
	}
	return max(sendSeq, replySeq), nil
}

// RunSummary is one line of `eigen trace` without --run.
type RunSummary struct {
	RunToken   string `json:"run_token"`
	BundleHash string `json:"bundle_hash"`
	Sends      int    `json:"sends"`
	FirstSeq   int64  `json:"first_seq"`
}

// ListRuns returns every recorded run in the order it started.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_token, MAX(bundle_hash), COUNT(*), MIN(seq)
		FROM sends
		GROUP BY run_token
		ORDER BY MIN(seq) ASC, run_token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunToken, &r.BundleHash, &r.Sends, &r.FirstSeq); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
