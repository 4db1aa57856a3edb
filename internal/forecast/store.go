package forecast

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	badger "github.com/dgraph-io/badger/v4"
)

// ArtifactStore persists trained models across process restarts. Load
// returns found=false for an absent artifact; that tagged miss is distinct
// from an error.
type ArtifactStore interface {
	Save(m *TrainedModel) error
	Load(market, crop string) (*TrainedModel, bool, error)
}

// FSStore keeps one JSON artifact per pair under a directory. Saves write to
// a temporary file first and rename into place, so a crash mid-save never
// leaves a corrupt artifact behind.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) path(market, crop string) string {
	name := fmt.Sprintf("%s_%s_model.json", sanitize(market), sanitize(crop))
	return filepath.Join(s.dir, name)
}

func (s *FSStore) Save(m *TrainedModel) error {
	tmp, err := os.CreateTemp(s.dir, ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	enc := json.NewEncoder(tmp)
	if err := enc.Encode(m); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(m.Market, m.Crop)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publish model: %w", err)
	}
	return nil
}

func (s *FSStore) Load(market, crop string) (*TrainedModel, bool, error) {
	data, err := os.ReadFile(s.path(market, crop))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read model: %w", err)
	}
	var m TrainedModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false, fmt.Errorf("unmarshal model: %w", err)
	}
	return &m, true, nil
}

// sanitize keeps artifact file names filesystem-safe.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, string(filepath.Separator), "-")
	return strings.ReplaceAll(s, " ", "_")
}

// PebbleStore keeps artifacts in a PebbleDB keyed market#crop.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) Save(m *TrainedModel) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	// Sync writes: artifacts are rewritten once per refresh cycle and must
	// survive a crash.
	if err := p.db.Set([]byte(Key(m.Market, m.Crop)), b, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (p *PebbleStore) Load(market, crop string) (*TrainedModel, bool, error) {
	v, closer, err := p.db.Get([]byte(Key(market, crop)))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()
	var m TrainedModel
	if err := json.Unmarshal(v, &m); err != nil {
		return nil, false, fmt.Errorf("unmarshal model: %w", err)
	}
	return &m, true, nil
}

// BadgerStore keeps artifacts in a BadgerDB keyed market#crop.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir))
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func (b *BadgerStore) Save(m *TrainedModel) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(Key(m.Market, m.Crop)), data)
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

func (b *BadgerStore) Load(market, crop string) (*TrainedModel, bool, error) {
	var m TrainedModel
	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(Key(market, crop)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &m); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &m, true, nil
}

// MemoryStore is a map-backed store for tests and single-process use.
type MemoryStore struct {
	mu     sync.RWMutex
	models map[string]*TrainedModel
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{models: make(map[string]*TrainedModel)}
}

func (s *MemoryStore) Save(m *TrainedModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[Key(m.Market, m.Crop)] = m
	return nil
}

func (s *MemoryStore) Load(market, crop string) (*TrainedModel, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[Key(market, crop)]
	return m, ok, nil
}
