package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	longTermFile = "long_term_memory.json"
	sessionFile  = "session_memory.json"
)

type longTermDoc struct {
	Items []Entry `json:"items"`
}

type sessionDoc struct {
	Turns []Turn `json:"turns"`
}

// FileStore persists both memories as JSON documents under dir. It is meant
// for single-process deployments.
type FileStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) Find(_ context.Context, query string) (*Entry, error) {
	q := foldQuery(query)
	if q == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var doc longTermDoc
	if err := s.read(longTermFile, &doc); err != nil {
		return nil, err
	}
	for i := range doc.Items {
		if matches(doc.Items[i].Question, q) {
			hit := doc.Items[i]
			return &hit, nil
		}
	}
	return nil, nil
}

func (s *FileStore) Append(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc longTermDoc
	if err := s.read(longTermFile, &doc); err != nil {
		return err
	}
	doc.Items = append(doc.Items, Entry{Question: turn.Question, Answer: turn.Answer, At: s.stamp(turn.At)})
	if len(doc.Items) > LongTermLimit {
		doc.Items = doc.Items[len(doc.Items)-LongTermLimit:]
	}
	return s.write(longTermFile, doc)
}

func (s *FileStore) Record(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc sessionDoc
	if err := s.read(sessionFile, &doc); err != nil {
		return err
	}
	turn.At = s.stamp(turn.At)
	doc.Turns = append(doc.Turns, turn)
	if len(doc.Turns) > SessionLimit {
		doc.Turns = doc.Turns[len(doc.Turns)-SessionLimit:]
	}
	return s.write(sessionFile, doc)
}

// Recent returns up to n turns for sessionID, oldest first.
func (s *FileStore) Recent(_ context.Context, sessionID string, n int) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc sessionDoc
	if err := s.read(sessionFile, &doc); err != nil {
		return nil, err
	}
	out := make([]Turn, 0, n)
	for _, t := range doc.Turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (s *FileStore) stamp(at time.Time) time.Time {
	if at.IsZero() {
		return s.now()
	}
	return at
}

// read treats a missing or unreadable document as empty.
func (s *FileStore) read(name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	// A corrupt document starts over empty.
	_ = json.Unmarshal(data, out)
	return nil
}

func (s *FileStore) write(name string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return os.Rename(tmp, path)
}
