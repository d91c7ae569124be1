package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/verity-labs/chorus/internal/core"
)

// envelopeVersion is the on-disk schema version for file checkpoints.
const envelopeVersion = 1

// fileEnvelope wraps a serialized session with integrity metadata.
type fileEnvelope struct {
	Version   int             `json:"version"`
	Checksum  string          `json:"checksum"`
	UpdatedAt time.Time       `json:"updated_at"`
	Session   json.RawMessage `json:"session"`
}

// FileStore persists one JSON envelope per session under a directory.
// Writes go through an atomic rename, so a crash mid-write leaves the
// previous checkpoint intact rather than a torn file.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[core.SessionID]*sync.Mutex
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:   dir,
		locks: make(map[core.SessionID]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing operations for one session.
// Different sessions proceed independently.
func (f *FileStore) sessionLock(id core.SessionID) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	lock, ok := f.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		f.locks[id] = lock
	}
	return lock
}

func (f *FileStore) path(id core.SessionID) string {
	return filepath.Join(f.dir, string(id)+".json")
}

// Write persists a full session snapshot.
func (f *FileStore) Write(_ context.Context, session *core.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	lock := f.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()
	return f.write(session)
}

func (f *FileStore) write(session *core.Session) error {
	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}

	payload, checksum, err := encodeSession(session)
	if err != nil {
		return err
	}
	envelope := fileEnvelope{
		Version:   envelopeVersion,
		Checksum:  checksum,
		UpdatedAt: time.Now(),
		Session:   payload,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	if err := atomicWriteFile(f.path(session.ID), data, 0o640); err != nil {
		return fmt.Errorf("writing checkpoint for %s: %w", session.ID, err)
	}
	return nil
}

func (f *FileStore) read(id core.SessionID) (*core.Session, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrSessionNotFound(id)
		}
		return nil, fmt.Errorf("reading checkpoint for %s: %w", id, err)
	}

	var envelope fileEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, core.ErrCheckpointCorrupt(id, err)
	}
	if envelope.Version != envelopeVersion {
		return nil, core.ErrCheckpointCorrupt(id, fmt.Errorf("unsupported envelope version %d", envelope.Version))
	}
	// The envelope is written indented, which re-indents the embedded
	// session payload; the checksum covers the compact form.
	var compact bytes.Buffer
	if err := json.Compact(&compact, envelope.Session); err != nil {
		return nil, core.ErrCheckpointCorrupt(id, err)
	}
	return decodeSession(id, compact.Bytes(), envelope.Checksum)
}

// Update applies a named-node delta as an atomic read-modify-write
// under the per-session lock.
func (f *FileStore) Update(_ context.Context, id core.SessionID, delta core.Delta, stage core.Stage) error {
	lock := f.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	session, err := f.read(id)
	if err != nil {
		return err
	}
	if err := applyDelta(session, delta, stage); err != nil {
		return err
	}
	return f.write(session)
}

// Read returns the current session snapshot.
func (f *FileStore) Read(_ context.Context, id core.SessionID) (*core.Session, error) {
	lock := f.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()
	return f.read(id)
}

// List returns the IDs of all checkpointed sessions.
func (f *FileStore) List(_ context.Context) ([]core.SessionID, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}

	var ids []core.SessionID
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, core.SessionID(strings.TrimSuffix(name, ".json")))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Close is a no-op for the file store.
func (f *FileStore) Close() error {
	return nil
}
