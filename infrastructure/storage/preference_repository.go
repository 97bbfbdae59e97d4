package storage

import (
	"chatty/contract"
	"chatty/errors"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const preferencePrefix = "pref:"

// OpenReadOnlyDB opens an existing store without taking its lock, so it
// can be inspected while a client runs.
func OpenReadOnlyDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open preference store %q read-only: %w", path, err)
	}
	return db, nil
}

// OpenDB opens the preference store under path. An empty path keeps
// everything in memory.
func OpenDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open preference store %q: %w", path, err)
	}
	return db, nil
}

// PreferenceRepository persists string preferences across runs.
type PreferenceRepository struct {
	db  *badger.DB
	log *slog.Logger
}

var _ contract.IPreferenceRepository = (*PreferenceRepository)(nil)

func NewPreferenceRepository(db *badger.DB, log *slog.Logger) *PreferenceRepository {
	return &PreferenceRepository{db: db, log: log}
}

// GetPreference returns errors.ErrPreferenceNotFound when key was never set.
func (r PreferenceRepository) GetPreference(key string) (string, error) {
	var value string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(preferencePrefix + key))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = string(raw)
		return nil
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return "", errors.ErrPreferenceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read preference %q: %w", key, err)
	}
	return value, nil
}

func (r PreferenceRepository) SetPreference(key, value string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(preferencePrefix+key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("write preference %q: %w", key, err)
	}
	r.log.Debug("Preference saved", "key", key, "value", value)
	return nil
}

// ListPreferences returns every stored preference by key.
func (r PreferenceRepository) ListPreferences() (map[string]string, error) {
	prefs := make(map[string]string)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(preferencePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			prefs[strings.TrimPrefix(string(item.Key()), preferencePrefix)] = string(raw)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return prefs, nil
}
