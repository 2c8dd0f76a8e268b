// Package persistence keeps the user facing thermostat state (mode and
// target range) across restarts.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Agrid-Dev/dualstat/internal/thermostat"
	"github.com/Agrid-Dev/dualstat/internal/ui"
)

const BucketThermostats = "thermostats"

type Persistence interface {
	Init() error

	LoadState(deviceID string) (thermostat.RestoredState, error)
	SaveState(deviceID string, s thermostat.Snapshot) error
	DeleteState(deviceID string) error
}

type persistence struct {
	dbPath string
}

func NewPersistence(dbPath string) Persistence {
	return &persistence{dbPath: dbPath}
}

// record is the stored form. Mode is kept as its name so the numbering of
// the enum can change.
type record struct {
	Mode       string   `json:"mode,omitempty"`
	TargetLow  *float64 `json:"target_low,omitempty"`
	TargetHigh *float64 `json:"target_high,omitempty"`
	SavedAt    string   `json:"saved_at,omitempty"`
}

func (p persistence) Init() error {
	parentDir := filepath.Dir(p.dbPath)
	_, err := os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		ui.Info("Creating directory for db: %s", parentDir)
		return os.MkdirAll(parentDir, 0755)
	}
	return err
}

func (p persistence) openPersistence() (*bolt.DB, error) {
	return bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
}

// LoadState returns os.ErrNotExist when nothing was saved for deviceID.
func (p persistence) LoadState(deviceID string) (thermostat.RestoredState, error) {
	var rs thermostat.RestoredState

	db, err := p.openPersistence()
	if err != nil {
		return rs, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	var rec record
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketThermostats))
		if b == nil {
			return os.ErrNotExist
		}
		v := b.Get([]byte(deviceID))
		if v == nil {
			return os.ErrNotExist
		}
		if err := json.Unmarshal(v, &rec); err != nil {
			// if we cannot read the saved data, delete it
			ui.Warning("Unable to unmarshal saved state for %s: %v", deviceID, err)
			if err := b.Delete([]byte(deviceID)); err != nil {
				ui.Error("Unable to delete corrupt data key %s: %v", deviceID, err)
			}
			return os.ErrNotExist
		}
		return nil
	})
	if err != nil {
		return rs, err
	}

	rs.TargetLow = rec.TargetLow
	rs.TargetHigh = rec.TargetHigh
	if rec.Mode != "" {
		m, err := thermostat.ParseMode(rec.Mode)
		if err != nil {
			ui.Warning("Ignoring saved mode for %s: %v", deviceID, err)
		} else {
			rs.Mode = &m
		}
	}
	return rs, nil
}

func (p persistence) SaveState(deviceID string, s thermostat.Snapshot) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(record{
		Mode:       s.Mode.String(),
		TargetLow:  s.TargetLow,
		TargetHigh: s.TargetHigh,
		SavedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketThermostats))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		return b.Put([]byte(deviceID), data)
	})
}

func (p persistence) DeleteState(deviceID string) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketThermostats))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(deviceID))
	})
}

// Saver writes the state whenever mode or target range changed since the
// last successful save. Its Save method is meant to be a thermostat listener.
type Saver struct {
	p        Persistence
	deviceID string
	get      func() thermostat.Snapshot

	mu   sync.Mutex
	last *record
}

func NewSaver(p Persistence, deviceID string, get func() thermostat.Snapshot) *Saver {
	return &Saver{p: p, deviceID: deviceID, get: get}
}

func (s *Saver) Save() {
	snap := s.get()
	cur := record{Mode: snap.Mode.String(), TargetLow: snap.TargetLow, TargetHigh: snap.TargetHigh}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && sameRecord(*s.last, cur) {
		return
	}
	if err := s.p.SaveState(s.deviceID, snap); err != nil {
		ui.Error("Unable to save thermostat state: %v", err)
		return
	}
	s.last = &cur
}

func sameRecord(a, b record) bool {
	return a.Mode == b.Mode && sameFloat(a.TargetLow, b.TargetLow) && sameFloat(a.TargetHigh, b.TargetHigh)
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
