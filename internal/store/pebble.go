package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/nebulachat/backend/internal/logger"
)

// Pebble is the durable Store backed by a Pebble database. Writes are
// synced; each aggregate is small enough that a full rewrite per mutation
// is cheaper than maintaining per-entity keys.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) the database at path.
func OpenPebble(path string) (*Pebble, error) {
	logger.Log.Info("opening_state_db", zap.String("path", path))
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &Pebble{db: db}, nil
}

func (s *Pebble) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Log.Error("state_save_failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *Pebble) Load(key string, v any) (bool, error) {
	data, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *Pebble) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	logger.Log.Info("state_db_closed")
	return err
}
