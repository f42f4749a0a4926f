// Package ledger persists the stage of every record a batch has touched
// so an interrupted batch can resume where each record stopped.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/yourorg/cc-corpus/internal/record"
)

var (
	// ErrNotFound indicates no entry exists for the record id.
	ErrNotFound = errors.New("not found")
)

const recPrefix = "rec/"

// Entry is the stored state of one record.
type Entry struct {
	Record    record.Record `json:"record"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Ledger is safe for concurrent use; badger serialises the transactions.
type Ledger struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens (or creates) a ledger in dir. An empty dir keeps it in memory.
func Open(dir string) (*Ledger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger %q: %w", dir, err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

func key(id string) []byte { return []byte(recPrefix + id) }

// Put stores the current state of rec. cause is the failure that moved it
// to Error, if any.
func (l *Ledger) Put(rec *record.Record, cause error) error {
	e := Entry{Record: *rec, UpdatedAt: l.now().UTC()}
	if cause != nil {
		e.Error = cause.Error()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(rec.ID), b)
	})
}

// Get returns the entry for id, or ErrNotFound.
func (l *Ledger) Get(id string) (Entry, error) {
	var e Entry
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &e) })
	})
	return e, err
}

// Delete forgets id. Missing ids are not an error.
func (l *Ledger) Delete(id string) error {
	return l.db.Update(func(txn *badger.Txn) error { return txn.Delete(key(id)) })
}

// List returns every entry. Keys sort by record id, so does the result.
func (l *Ledger) List() ([]Entry, error) {
	return l.scan(func(Entry) bool { return true })
}

// ListByStage returns the entries currently at stage, ordered by record id.
func (l *Ledger) ListByStage(stage record.Stage) ([]Entry, error) {
	return l.scan(func(e Entry) bool { return e.Record.Stage == stage })
}

// Counts tallies entries per stage.
func (l *Ledger) Counts() (map[record.Stage]int, error) {
	all, err := l.List()
	if err != nil {
		return nil, err
	}
	out := make(map[record.Stage]int)
	for _, e := range all {
		out[e.Record.Stage]++
	}
	return out, nil
}

func (l *Ledger) scan(keep func(Entry) bool) ([]Entry, error) {
	var out []Entry
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var e Entry
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &e) }); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if keep(e) {
				out = append(out, e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
