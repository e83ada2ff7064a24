package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/eigen/internal/ir"
)

// createTestStore opens a store in a per-test temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSend creates a send with minimal required fields.
func createTestSend(id, runToken, message string, seq int64) ir.Send {
	return ir.Send{
		ID:            id,
		RunToken:      runToken,
		Seq:           seq,
		Kind:          "send",
		Receiver:      "#<A:1>",
		Message:       message,
		Function:      "A#" + message,
		Args:          ir.IRArray{},
		Depth:         1,
		BundleHash:    "test-hash",
		EngineVersion: "0.1.0",
		IRVersion:     "1",
	}
}

// createTestReply creates a reply with minimal required fields.
func createTestReply(id, sendID, outcome string, seq int64) ir.Reply {
	return ir.Reply{
		ID:      id,
		SendID:  sendID,
		Seq:     seq,
		Outcome: outcome,
		Result:  ir.IRNull{},
	}
}
