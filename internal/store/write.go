package store

import (
	"context"
	"fmt"

	"github.com/roach88/eigen/internal/ir"
)

// WriteSend inserts a send record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// Other constraint violations (e.g., NOT NULL) will still return errors.
//
// Args are serialized to canonical JSON per RFC 8785 for deterministic replay.
func (s *Store) WriteSend(ctx context.Context, send ir.Send) error {
	argsJSON, err := marshalArgs(send.Args)
	if err != nil {
		return fmt.Errorf("write send: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sends
		(id, run_token, kind, receiver, message, function, args, depth, seq, bundle_hash, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		send.ID,
		send.RunToken,
		send.Kind,
		send.Receiver,
		send.Message,
		send.Function,
		argsJSON,
		send.Depth,
		send.Seq,
		send.BundleHash,
		send.EngineVersion,
		send.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write send: %w", err)
	}

	return nil
}

// WriteReply inserts a reply record into the store.
// Each send has exactly ONE reply (UNIQUE send_id); a second reply for the
// same send is silently ignored, as is rewriting the same reply.
//
// Note: The send referenced by SendID must exist (foreign key constraint).
func (s *Store) WriteReply(ctx context.Context, reply ir.Reply) error {
	resultJSON, err := marshalResult(reply.Result)
	if err != nil {
		return fmt.Errorf("write reply: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO replies
		(id, send_id, outcome, result, error, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		reply.ID,
		reply.SendID,
		reply.Outcome,
		resultJSON,
		reply.Error,
		reply.Seq,
	)
	if err != nil {
		return fmt.Errorf("write reply: %w", err)
	}

	return nil
}
