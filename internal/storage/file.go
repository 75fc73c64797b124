package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"outagebot/internal/transport"
	logx "outagebot/pkg/logx"
)

// fileStore keeps the reference as one JSON object:
//
//	{"chat_id":-100123,"message_id":42,"date":1760871600}
type fileStore struct {
	log  logx.Logger
	path string
	mu   sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (MessageStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = DefaultPath
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Load(ctx context.Context) (transport.MessageRef, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return transport.MessageRef{}, false, nil
	}
	if err != nil {
		return transport.MessageRef{}, false, err
	}
	var ref transport.MessageRef
	if err := json.Unmarshal(b, &ref); err != nil || ref.IsZero() {
		// A truncated or empty file only means there is nothing to edit.
		s.log.Warn("ignoring unreadable message state", logx.String("path", s.path), logx.Err(err))
		_ = s.removeLocked()
		return transport.MessageRef{}, false, nil
	}
	return ref, true, nil
}

func (s *fileStore) Save(ctx context.Context, ref transport.MessageRef) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(ref)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Delete(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked()
}

func (s *fileStore) removeLocked() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) Close() error { return nil }
