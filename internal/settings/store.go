// Package settings implements a durable, fsynced key-value store backing
// scheduler.Settings, grounded on the original firmware's sled-backed
// Store (put_setting_f64/get_setting_f64 and friends) but built on
// go.etcd.io/bbolt, the closest embedded, single-file, ACID Go analogue.
package settings

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketName = "settings"

const (
	keyTDSThreshold            = "tds_threshold"
	keyPHThreshold             = "ph_threshold"
	keyOsmosisPulseDuration    = "osmosis_pulse_duration"
	keyOsmosisPulseMinInterval = "osmosis_pulse_min_interval"
	keyPHPulseDuration         = "ph_pulse_duration"
	keyPHPulseMinInterval      = "ph_pulse_min_interval"
	keyTDSMonitoringEnabled    = "tds_monitoring"
	keyPHMonitoringEnabled     = "ph_monitoring"
)

// Defaults mirror the original firmware's SETTING_*_DEFAULT constants,
// adapted to the pH/TDS/temperature generation's units (time.Duration
// rather than a bare seconds count).
const (
	defaultTDSThreshold            = 500.0
	defaultPHThreshold              = 7.0
	defaultOsmosisPulseDuration     = 10 * time.Second
	defaultOsmosisPulseMinInterval  = 240 * time.Second
	defaultPHPulseDuration          = 10 * time.Second
	defaultPHPulseMinInterval       = 240 * time.Second
	defaultTDSMonitoringEnabled     = false
	defaultPHMonitoringEnabled      = false
)

// Store is a bbolt-backed implementation of scheduler.Settings. Every
// setter commits (which fsyncs, per bbolt's default NoSync=false) before
// returning; a getter that finds no value writes the default through and
// returns it, matching the source's get-or-seed behaviour.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt file at path and ensures
// the settings bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("settings: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("settings: create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying bbolt file.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) getFloat(key string, def float64) float64 {
	var v float64
	var found bool
	_ = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		v = decodeFloat(raw)
		found = true
		return nil
	})
	if found {
		return v
	}
	s.putFloat(key, def)
	return def
}

func (s *Store) putFloat(key string, v float64) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), encodeFloat(v))
	})
}

func (s *Store) getDuration(key string, def time.Duration) time.Duration {
	var v time.Duration
	var found bool
	_ = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		v = time.Duration(decodeInt(raw))
		found = true
		return nil
	})
	if found {
		return v
	}
	s.putDuration(key, def)
	return def
}

func (s *Store) putDuration(key string, v time.Duration) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), encodeInt(int64(v)))
	})
}

func (s *Store) getBool(key string, def bool) bool {
	var v bool
	var found bool
	_ = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if raw == nil {
			return nil
		}
		v = raw[0] == 1
		found = true
		return nil
	})
	if found {
		return v
	}
	s.putBool(key, def)
	return def
}

func (s *Store) putBool(key string, v bool) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		b := byte(0)
		if v {
			b = 1
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), []byte{b})
	})
}

func encodeFloat(v float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

func decodeFloat(raw []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(raw))
}

func encodeInt(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt(raw []byte) int64 {
	return int64(binary.BigEndian.Uint64(raw))
}

// --- scheduler.Settings interface ---

func (s *Store) TDSThreshold() float64 { return s.getFloat(keyTDSThreshold, defaultTDSThreshold) }
func (s *Store) SetTDSThreshold(v float64) { s.putFloat(keyTDSThreshold, v) }

func (s *Store) PHThreshold() float64 { return s.getFloat(keyPHThreshold, defaultPHThreshold) }
func (s *Store) SetPHThreshold(v float64) { s.putFloat(keyPHThreshold, v) }

func (s *Store) OsmosisPulseDuration() time.Duration {
	return s.getDuration(keyOsmosisPulseDuration, defaultOsmosisPulseDuration)
}
func (s *Store) SetOsmosisPulseDuration(d time.Duration) { s.putDuration(keyOsmosisPulseDuration, d) }

func (s *Store) OsmosisPulseMinInterval() time.Duration {
	return s.getDuration(keyOsmosisPulseMinInterval, defaultOsmosisPulseMinInterval)
}
func (s *Store) SetOsmosisPulseMinInterval(d time.Duration) {
	s.putDuration(keyOsmosisPulseMinInterval, d)
}

func (s *Store) PHPulseDuration() time.Duration {
	return s.getDuration(keyPHPulseDuration, defaultPHPulseDuration)
}
func (s *Store) SetPHPulseDuration(d time.Duration) { s.putDuration(keyPHPulseDuration, d) }

func (s *Store) PHPulseMinInterval() time.Duration {
	return s.getDuration(keyPHPulseMinInterval, defaultPHPulseMinInterval)
}
func (s *Store) SetPHPulseMinInterval(d time.Duration) { s.putDuration(keyPHPulseMinInterval, d) }

func (s *Store) TDSMonitoringEnabled() bool {
	return s.getBool(keyTDSMonitoringEnabled, defaultTDSMonitoringEnabled)
}
func (s *Store) SetTDSMonitoringEnabled(v bool) { s.putBool(keyTDSMonitoringEnabled, v) }

func (s *Store) PHMonitoringEnabled() bool {
	return s.getBool(keyPHMonitoringEnabled, defaultPHMonitoringEnabled)
}
func (s *Store) SetPHMonitoringEnabled(v bool) { s.putBool(keyPHMonitoringEnabled, v) }
