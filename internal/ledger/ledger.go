// Package ledger tracks messages that were moved into the night holding
// topic, so they can be replayed into their original topics once quiet
// hours end.
package ledger

import (
	"fmt"
	"sync"

	"github.com/example/curfewbot/internal/domain"
)

// Store is the persistence surface the ledger needs. Satisfied by
// *store.JSONFile[domain.DeferredMessage].
type Store interface {
	Load() ([]domain.DeferredMessage, error)
	Save([]domain.DeferredMessage) error
}

// Ledger is the durable list of deferred messages. Every append and the
// final clear hit disk immediately, so a restart mid-night loses
// nothing that was already redirected.
type Ledger struct {
	mu      sync.Mutex
	entries []domain.DeferredMessage
	file    Store
}

// New creates a ledger over the given store.
func New(file Store) *Ledger {
	return &Ledger{file: file}
}

// Load restores pending entries from durable storage. Malformed content
// is an error the caller must treat as fatal.
func (l *Ledger) Load() error {
	entries, err := l.file.Load()
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	return nil
}

// Append records a redirected message and persists the ledger.
// originTopic is nil when the original message had no topic.
func (l *Ledger) Append(messageID int, originTopic *int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, domain.DeferredMessage{
		MessageID:   messageID,
		OriginTopic: originTopic,
	})
	if err := l.file.Save(l.entries); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// Entries returns a copy of the pending entries.
func (l *Ledger) Entries() []domain.DeferredMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.DeferredMessage, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of pending entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear empties the ledger and persists the empty state.
func (l *Ledger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	if err := l.file.Save(nil); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}
