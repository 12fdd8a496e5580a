// Reelsync - Movie and TV Discovery with Synchronized Watch Rooms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsync

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsync/internal/logging"
)

const (
	sessionKeyPrefix     = "session:"
	sessionUserKeyPrefix = "session_user:"
)

// Session store backends accepted in configuration.
const (
	SessionStoreMemory = "memory"
	SessionStoreBadger = "badger"
)

// BadgerSessionStore persists sessions in BadgerDB. Entries carry a TTL
// equal to the session lifetime, so Badger drops them on compaction even if
// CleanupExpired never runs.
type BadgerSessionStore struct {
	db *badger.DB
}

// OpenSessionStore returns the store selected by storeType.
// path is only used for the badger backend.
func OpenSessionStore(storeType, path string) (SessionStore, error) {
	switch storeType {
	case "", SessionStoreMemory:
		return NewMemorySessionStore(), nil
	case SessionStoreBadger:
		opts := badger.DefaultOptions(path).WithLogger(nil)
		return OpenBadgerSessionStore(opts)
	default:
		return nil, fmt.Errorf("unknown session store %q", storeType)
	}
}

// OpenBadgerSessionStore opens a Badger database with opts.
func OpenBadgerSessionStore(opts badger.Options) (*BadgerSessionStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for sessions: %w", err)
	}
	return &BadgerSessionStore{db: db}, nil
}

// Create stores the session and its user index entry.
func (s *BadgerSessionStore) Create(_ context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(badger.NewEntry(sessionKey(session.ID), data).WithTTL(ttl)); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		userEntry := badger.NewEntry(sessionUserKey(session.UserID, session.ID), []byte(session.ID)).WithTTL(ttl)
		if err := txn.SetEntry(userEntry); err != nil {
			return fmt.Errorf("set user mapping: %w", err)
		}
		return nil
	})
}

// Get reads a session by id.
func (s *BadgerSessionStore) Get(_ context.Context, id string) (*Session, error) {
	session, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return session, nil
}

func (s *BadgerSessionStore) read(id string) (*Session, error) {
	var session Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the session and its user index entry.
func (s *BadgerSessionStore) Delete(_ context.Context, id string) error {
	session, err := s.read(id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(sessionKey(id)); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if err := txn.Delete(sessionUserKey(session.UserID, id)); err != nil {
			return fmt.Errorf("delete user mapping: %w", err)
		}
		return nil
	})
}

// DeleteByUserID walks the user index and deletes each session.
func (s *BadgerSessionStore) DeleteByUserID(ctx context.Context, userID string) (int, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(sessionUserKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}

	count := 0
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			logging.Warn().Err(err).Str("session_id", id).Msg("Failed to delete user session")
			continue
		}
		count++
	}
	return count, nil
}

// CleanupExpired removes sessions whose ExpiresAt has passed and runs
// value log GC.
func (s *BadgerSessionStore) CleanupExpired(ctx context.Context) (int, error) {
	var expired []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(sessionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var session Session
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			}); err != nil {
				continue
			}
			if session.IsExpired() {
				expired = append(expired, session.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}

	count := 0
	for _, id := range expired {
		if err := s.Delete(ctx, id); err == nil {
			count++
		}
	}

	if !s.db.Opts().InMemory {
		if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			logging.Debug().Err(err).Msg("Session value log GC skipped")
		}
	}
	return count, nil
}

// Close closes the Badger database.
func (s *BadgerSessionStore) Close() error {
	return s.db.Close()
}

func sessionKey(id string) []byte {
	return []byte(sessionKeyPrefix + id)
}

func sessionUserKey(userID, id string) []byte {
	return []byte(sessionUserKeyPrefix + userID + ":" + id)
}
