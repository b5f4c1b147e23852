// Package dbtest provides assertions over bbolt files written by pkg/store.
package dbtest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var (
	ErrNoBucket = xerrors.New("no such bucket")
)

// JSONEq asserts that the value stored under the bucket path keys[:len-1]
// and key keys[len-1] is JSON-equal to want.
func JSONEq(t *testing.T, dbPath string, keys []string, want any, msgAndArgs ...any) {
	t.Helper()

	wantByte, err := json.Marshal(want)
	require.NoError(t, err, msgAndArgs...)

	got, err := get(dbPath, keys)
	require.NoError(t, err, msgAndArgs...)

	assert.JSONEq(t, string(wantByte), string(got), msgAndArgs...)
}

// Keys asserts the keys of the bucket at path buckets, in bbolt order.
func Keys(t *testing.T, dbPath string, buckets []string, want []string, msgAndArgs ...any) {
	t.Helper()

	var got []string
	err := view(dbPath, func(tx *bolt.Tx) error {
		bkt, err := bucket(tx, buckets)
		if err != nil {
			return err
		}
		return bkt.ForEach(func(k, _ []byte) error {
			got = append(got, string(k))
			return nil
		})
	})
	require.NoError(t, err, msgAndArgs...)
	assert.Equal(t, want, got, msgAndArgs...)
}

// NoBucket asserts that the bucket at path buckets does not exist.
func NoBucket(t *testing.T, dbPath string, buckets []string, msgAndArgs ...any) {
	t.Helper()

	err := view(dbPath, func(tx *bolt.Tx) error {
		_, err := bucket(tx, buckets)
		return err
	})
	assert.ErrorIs(t, err, ErrNoBucket, msgAndArgs...)
}

func view(dbPath string, fn func(tx *bolt.Tx) error) error {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{ReadOnly: true})
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

func bucket(tx *bolt.Tx, names []string) (*bolt.Bucket, error) {
	if len(names) == 0 {
		return nil, xerrors.Errorf("empty bucket path: %w", ErrNoBucket)
	}
	bkt := tx.Bucket([]byte(names[0]))
	for _, name := range names[1:] {
		if bkt == nil {
			break
		}
		bkt = bkt.Bucket([]byte(name))
	}
	if bkt == nil {
		return nil, xerrors.Errorf("bucket error %v: %w", names, ErrNoBucket)
	}
	return bkt, nil
}

func get(dbPath string, keys []string) ([]byte, error) {
	if len(keys) < 2 {
		return nil, xerrors.Errorf("malformed keys: %v", keys)
	}
	var b []byte
	err := view(dbPath, func(tx *bolt.Tx) error {
		bkt, err := bucket(tx, keys[:len(keys)-1])
		if err != nil {
			return err
		}
		res := bkt.Get([]byte(keys[len(keys)-1]))

		// Copy the returned value
		b = make([]byte, len(res))
		copy(b, res)
		return nil
	})
	return b, err
}
