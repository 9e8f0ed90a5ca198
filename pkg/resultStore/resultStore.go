// Package resultStore persists decode runs in a badger database so BER
// experiments can be compared across recordings. Records are keyed by the
// session fingerprint, which makes transmitter/receiver config mismatches
// visible when listing a session's history.
package resultStore

import (
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v3"
)

type Record struct {
	Session                   uint16    `json:"session"` // session.Params fingerprint
	When                      time.Time `json:"when"`
	Bits                      string    `json:"bits"`
	BER                       float64   `json:"ber"`
	BitsPerSecond             float64   `json:"bits_per_second"`
	Resyncs                   int       `json:"resyncs"`
	Erasures                  int       `json:"erasures"`
	EffectiveSamplesPerSymbol float64   `json:"effective_samples_per_symbol"`
}

type Store struct {
	db *badger.DB
}

func Open(path string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that lives only for the process, used in tests.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening in-memory result store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(rec Record) error {
	if rec.When.IsZero() {
		rec.When = time.Now()
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := []byte(fmt.Sprintf("run/%04x/%020d", rec.Session, rec.When.UnixNano()))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// List returns all stored runs for one session fingerprint, oldest first.
func (s *Store) List(session uint16) ([]Record, error) {
	prefix := []byte(fmt.Sprintf("run/%04x/", session))
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var r Record
				if err := json.Unmarshal(v, &r); err != nil {
					return err
				}
				out = append(out, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}
