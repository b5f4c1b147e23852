// Package store archives report models in a bbolt file so a finished run
// can be rendered again with the show command.
//
// Layout:
//
//	oss-checker/metadata/data    -> Metadata
//	reports/<ecosystem>/<000001> -> report.Component
//	failures/<ecosystem>/<000001> -> report.Failure
//
// Keys are zero-padded arrival indexes so bucket iteration order equals
// model order.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
	"k8s.io/utils/clock"

	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
	"github.com/warren2314/OSS-Checker/pkg/report"
)

const (
	SchemaVersion = 1

	metadataBucket = "oss-checker"
	reportsBucket  = "reports"
	failuresBucket = "failures"
)

var ErrNoReport = xerrors.New("no report archived")

type Metadata struct {
	Version         int
	CreatedAt       time.Time
	Ecosystems      []ecosystem.Type
	Components      int
	Vulnerabilities int
	Failed          int
}

type Store struct {
	db    *bolt.DB
	path  string
	clock clock.Clock
}

type Option func(*Store)

func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// Open opens or creates the archive at path.
func Open(path string, opts ...Option) (*Store, error) {
	eb := oops.With("file_path", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, eb.Wrapf(err, "mkdir error")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, eb.Wrapf(err, "db open error")
	}
	s := &Store{
		db:    db,
		path:  path,
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return xerrors.Errorf("failed to close DB: %w", err)
	}
	return nil
}

// Save replaces the archived report with m.
func (s *Store) Save(m report.Model) error {
	components, vulns, failed := m.Counts()
	meta := Metadata{
		Version:         SchemaVersion,
		CreatedAt:       s.clock.Now().UTC(),
		Components:      components,
		Vulnerabilities: vulns,
		Failed:          failed,
	}
	for _, sec := range m.Sections {
		meta.Ecosystems = append(meta.Ecosystems, sec.Ecosystem)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{metadataBucket, reportsBucket, failuresBucket} {
			if err := tx.DeleteBucket([]byte(name)); err != nil && !xerrors.Is(err, bolt.ErrBucketNotFound) {
				return xerrors.Errorf("failed to delete bucket: %w", err)
			}
		}
		for _, sec := range m.Sections {
			eco := string(sec.Ecosystem)
			for i, c := range sec.Components {
				if err := putNestedBucket(tx, reportsBucket, eco, key(i), c); err != nil {
					return err
				}
			}
			for i, f := range sec.Failures {
				if err := putNestedBucket(tx, failuresBucket, eco, key(i), f); err != nil {
					return err
				}
			}
		}
		return putNestedBucket(tx, metadataBucket, "metadata", "data", meta)
	})
	if err != nil {
		return oops.With("file_path", s.path).Wrapf(err, "db update error")
	}
	return nil
}

// Metadata returns the metadata of the archived report.
func (s *Store) Metadata() (Metadata, error) {
	var meta Metadata
	err := s.db.View(func(tx *bolt.Tx) error {
		return getNested(tx, metadataBucket, "metadata", "data", &meta)
	})
	if err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// Load rebuilds the archived model.
func (s *Store) Load() (report.Model, error) {
	meta, err := s.Metadata()
	if err != nil {
		return report.Model{}, err
	}

	m := report.Model{Sections: make([]report.Section, 0, len(meta.Ecosystems))}
	err = s.db.View(func(tx *bolt.Tx) error {
		for _, eco := range meta.Ecosystems {
			sec := report.Section{Ecosystem: eco, Components: []report.Component{}}
			err := forEach(tx, reportsBucket, string(eco), func(v []byte) error {
				var c report.Component
				if err := json.Unmarshal(v, &c); err != nil {
					return xerrors.Errorf("failed to unmarshal component: %w", err)
				}
				sec.Components = append(sec.Components, c)
				return nil
			})
			if err != nil {
				return err
			}
			err = forEach(tx, failuresBucket, string(eco), func(v []byte) error {
				var f report.Failure
				if err := json.Unmarshal(v, &f); err != nil {
					return xerrors.Errorf("failed to unmarshal failure: %w", err)
				}
				sec.Failures = append(sec.Failures, f)
				return nil
			})
			if err != nil {
				return err
			}
			m.Sections = append(m.Sections, sec)
		}
		return nil
	})
	if err != nil {
		return report.Model{}, oops.With("file_path", s.path).Wrapf(err, "db view error")
	}
	return m, nil
}

func key(i int) string {
	return fmt.Sprintf("%06d", i+1)
}

func putNestedBucket(tx *bolt.Tx, rootBucket, nestedBucket, key string, value any) error {
	root, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
	if err != nil {
		return xerrors.Errorf("failed to create a bucket: %w", err)
	}
	nested, err := root.CreateBucketIfNotExists([]byte(nestedBucket))
	if err != nil {
		return xerrors.Errorf("failed to create a bucket: %w", err)
	}
	v, err := json.Marshal(value)
	if err != nil {
		return xerrors.Errorf("failed to marshal JSON: %w", err)
	}
	return nested.Put([]byte(key), v)
}

func getNested(tx *bolt.Tx, rootBucket, nestedBucket, key string, value any) error {
	root := tx.Bucket([]byte(rootBucket))
	if root == nil {
		return ErrNoReport
	}
	nested := root.Bucket([]byte(nestedBucket))
	if nested == nil {
		return ErrNoReport
	}
	b := nested.Get([]byte(key))
	if b == nil {
		return ErrNoReport
	}
	if err := json.Unmarshal(b, value); err != nil {
		return xerrors.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// forEach visits the values of a nested bucket in key order. A missing
// bucket has no values.
func forEach(tx *bolt.Tx, rootBucket, nestedBucket string, fn func(v []byte) error) error {
	root := tx.Bucket([]byte(rootBucket))
	if root == nil {
		return nil
	}
	nested := root.Bucket([]byte(nestedBucket))
	if nested == nil {
		return nil
	}
	return nested.ForEach(func(_, v []byte) error {
		return fn(v)
	})
}
