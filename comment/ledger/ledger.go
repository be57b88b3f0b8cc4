// Package ledger records which gallery items the bot has already handled.
package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/theimaginaryfoundation/comment-o-bot/comment/fileutils"
)

// ErrAlreadySeen is returned by MarkSeen when the id is already recorded.
var ErrAlreadySeen = errors.New("ledger: id already seen")

type document struct {
	Seen []string `json:"seen"`
}

// FileLedger is a set of item ids persisted as a JSON document. Every mutation rewrites the file atomically.
// It is safe for concurrent use within one process.
type FileLedger struct {
	path string

	mu   sync.Mutex
	seen map[string]struct{}
}

// Open loads the ledger at path, starting empty if the file does not exist yet.
func Open(path string) (*FileLedger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger.Open: path is empty")
	}

	var doc document
	if err := fileutils.ReadJSONFile(path, &doc); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ledger.Open: %w", err)
	}

	l := &FileLedger{path: path, seen: make(map[string]struct{}, len(doc.Seen))}
	for _, id := range doc.Seen {
		l.seen[id] = struct{}{}
	}
	return l, nil
}

// Path returns the backing file.
func (l *FileLedger) Path() string { return l.path }

// MarkSeen records id. It fails with ErrAlreadySeen if id was recorded before.
func (l *FileLedger) MarkSeen(id string) error {
	if id == "" {
		return errors.New("MarkSeen: id is empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[id]; ok {
		return fmt.Errorf("MarkSeen %q: %w", id, ErrAlreadySeen)
	}
	l.seen[id] = struct{}{}
	if err := l.flushLocked(); err != nil {
		delete(l.seen, id)
		return fmt.Errorf("MarkSeen %q: %w", id, err)
	}
	return nil
}

// HasSeen reports whether id was recorded.
func (l *FileLedger) HasSeen(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[id]
	return ok, nil
}

// Reset forgets every recorded id.
func (l *FileLedger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.seen
	l.seen = make(map[string]struct{})
	if err := l.flushLocked(); err != nil {
		l.seen = prev
		return fmt.Errorf("Reset: %w", err)
	}
	return nil
}

// Len returns the number of recorded ids.
func (l *FileLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

func (l *FileLedger) flushLocked() error {
	ids := make([]string, 0, len(l.seen))
	for id := range l.seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fileutils.WriteJSONFileAtomic(l.path, document{Seen: ids}, true)
}
