// Package prefs persists the client's UI preferences (theme and sidebar
// state) in a small bbolt file, read at startup and written on toggle.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ziadkadry99/prompted/internal/apperr"
	"github.com/ziadkadry99/prompted/internal/state"
)

const bucketPrefs = "prefs"

const (
	keyTheme            = "theme"
	keySidebarCollapsed = "sidebar_collapsed"
)

// Store is a preferences file.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the preferences file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperr.Storage(apperr.CodeStorageWrite, fmt.Errorf("creating preferences directory: %w", err))
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, apperr.Storage(apperr.CodeStorageRead, fmt.Errorf("opening preferences: %w", err))
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketPrefs))
		return err
	})
	if err != nil {
		db.Close()
		return nil, apperr.Storage(apperr.CodeStorageWrite, fmt.Errorf("initializing preferences: %w", err))
	}
	return &Store{db: db}, nil
}

// Close releases the file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted preferences as store options. Missing or
// unreadable values fall back to light theme and an expanded sidebar.
func (s *Store) Load() (state.Options, error) {
	opts := state.Options{Theme: state.ThemeLight}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketPrefs))
		if v := b.Get([]byte(keyTheme)); v != nil {
			if t := state.Theme(v); t == state.ThemeDark || t == state.ThemeLight {
				opts.Theme = t
			}
		}
		if v := b.Get([]byte(keySidebarCollapsed)); v != nil {
			collapsed, err := strconv.ParseBool(string(v))
			if err == nil {
				opts.SidebarCollapsed = collapsed
			}
		}
		return nil
	})
	if err != nil {
		return opts, apperr.Storage(apperr.CodeStorageRead, err)
	}
	return opts, nil
}

// SetTheme persists the theme.
func (s *Store) SetTheme(t state.Theme) error {
	return s.put(keyTheme, string(t))
}

// SetSidebarCollapsed persists the sidebar state.
func (s *Store) SetSidebarCollapsed(v bool) error {
	return s.put(keySidebarCollapsed, strconv.FormatBool(v))
}

func (s *Store) put(key, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPrefs)).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return apperr.Storage(apperr.CodeStorageWrite, fmt.Errorf("saving %s: %w", key, err))
	}
	return nil
}

// Bind writes theme and sidebar changes from st to s as they happen. Write
// failures go to onError. The returned function stops the binding.
func (s *Store) Bind(st *state.Store, onError func(error)) (unbind func()) {
	report := func(err error) {
		if err != nil && onError != nil {
			onError(err)
		}
	}
	u1 := st.Theme.Subscribe(func(_, next state.Theme) { report(s.SetTheme(next)) })
	u2 := st.SidebarCollapsed.Subscribe(func(_, next bool) { report(s.SetSidebarCollapsed(next)) })
	return func() {
		u1()
		u2()
	}
}
