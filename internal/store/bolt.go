package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	bolt "go.etcd.io/bbolt"

	"supportline/internal/call"
)

var sessionsBucket = []byte("sessions")

// BoltStore persists the completed-call session list in a BoltDB file. One
// record is appended per ended call.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed, 0600) the database at path and
// ensures the sessions bucket exists.
func NewBoltStore(path string) (BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return BoltStore{}, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})

	return BoltStore{db: db}, err
}

// Append stores a finalized session record. Keys are sequence-prefixed so the
// bucket iterates in completion order.
func (s BoltStore) Append(_ context.Context, sess call.Session) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return fmt.Errorf("sessions bucket missing")
		}

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		key := fmt.Sprintf("%08d-%s", seq, sess.ID)

		v, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		return b.Put([]byte(key), v)
	})
}

// Sessions returns all persisted session records, newest first.
func (s BoltStore) Sessions(context.Context) ([]call.Session, error) {
	var sessions []call.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			var sess call.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			sessions = append(sessions, sess)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(sessions)
	return sessions, nil
}

// Close releases the underlying database file.
func (s BoltStore) Close() error {
	return s.db.Close()
}
