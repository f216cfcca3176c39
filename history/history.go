// Package history keeps recent transcripts in a local badger database.
// Only text is stored; audio never leaves memory.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var prefix = []byte("transcript/")

// Entry is one stored transcript.
type Entry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Model     string    `json:"model"`
	Language  string    `json:"language,omitempty"` // requested
	Detected  string    `json:"detected,omitempty"` // ISO-639-1 code, if detected
	CreatedAt time.Time `json:"created_at"`
}

// Store is a transcript history backed by badger.
type Store struct {
	db        *badger.DB
	retention time.Duration
	now       func() time.Time
}

// Open opens or creates the store at dir. Entries expire after retention;
// zero keeps them forever.
func Open(dir string, retention time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Store{db: db, retention: retention, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e. Empty ID and CreatedAt are filled in.
func (s *Store) Record(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	id, err := uuid.Parse(e.ID)
	if err != nil {
		return Entry{}, fmt.Errorf("record transcript: %w", err)
	}
	val, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal transcript: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		be := badger.NewEntry(key(e.CreatedAt, id), val)
		if s.retention > 0 {
			be = be.WithTTL(s.retention)
		}
		return txn.SetEntry(be)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("record transcript: %w", err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			entries = append(entries, e)
			if limit > 0 && len(entries) == limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	return entries, nil
}

// key orders entries by creation time; the id breaks ties.
func key(t time.Time, id uuid.UUID) []byte {
	k := make([]byte, 0, len(prefix)+8+len(id))
	k = append(k, prefix...)
	k = binary.BigEndian.AppendUint64(k, uint64(t.UnixNano()))
	return append(k, id[:]...)
}
