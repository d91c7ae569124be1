// Package checkpoint provides CheckpointStore adapters: a process-local
// memory store, a JSON file store with atomic writes, and a SQLite
// store. All adapters serialize updates per session and hand out deep
// copies, so no reader ever observes a half-applied delta.
//
// None of the adapters garbage-collect abandoned sessions: a session
// left at the feedback gate stays checkpointed until removed out of
// band.
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/verity-labs/chorus/internal/core"
)

// Backend identifies a checkpoint store implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// New creates a checkpoint store for the given backend.
func New(backend, path string) (core.CheckpointStore, error) {
	switch Backend(backend) {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend: %s", backend)
	}
}

// encodeSession serializes a session and returns the payload plus its
// integrity checksum.
func encodeSession(s *core.Session) ([]byte, string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, "", fmt.Errorf("marshaling session: %w", err)
	}
	hash := sha256.Sum256(payload)
	return payload, hex.EncodeToString(hash[:]), nil
}

// decodeSession parses a payload and verifies its checksum. A mismatch
// or parse failure surfaces as CheckpointCorrupt for that session only.
func decodeSession(id core.SessionID, payload []byte, checksum string) (*core.Session, error) {
	hash := sha256.Sum256(payload)
	if hex.EncodeToString(hash[:]) != checksum {
		return nil, core.ErrCheckpointCorrupt(id, fmt.Errorf("checksum mismatch"))
	}
	var s core.Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, core.ErrCheckpointCorrupt(id, err)
	}
	if s.ID != id {
		return nil, core.ErrCheckpointCorrupt(id, fmt.Errorf("payload holds session %s", s.ID))
	}
	return &s, nil
}

// applyDelta applies a named-node delta plus stage transition to a
// session loaded under the store's lock.
func applyDelta(s *core.Session, delta core.Delta, stage core.Stage) error {
	if !core.ValidStage(stage) {
		return core.ErrValidation(core.CodeInvalidState, "invalid target stage: "+string(stage))
	}
	if err := delta.Apply(s); err != nil {
		return err
	}
	s.CurrentStage = stage
	return nil
}
