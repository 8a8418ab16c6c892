// Package ledger remembers the stage checksums of generated levels so a
// revisit of the same seed can be checked for desync.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"levelgen/internal/level"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("ledger closed")

var fingerprintNamespace = uuid.MustParse("6f1c5d1e-3b7a-5a55-9b3e-2f1d8c0e4a77")

// Key identifies one generated level.
type Key struct {
	Seed        string
	Fingerprint string
	Mirror      bool
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/mirror=%t", k.Seed, k.Fingerprint, k.Mirror)
}

// Store persists checksums per level key.
type Store interface {
	Load(key Key) (level.Checksums, bool, error)
	Save(key Key, sums level.Checksums) error
	Delete(key Key) error
	ForEach(fn func(key Key, sums level.Checksums) bool) error
	Close() error
}

// Fingerprint hashes the generation inputs besides the seed. Values are
// encoded as JSON, so anything with stable JSON output can take part.
func Fingerprint(inputs ...any) (string, error) {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("encode fingerprint inputs: %w", err)
	}
	return uuid.NewSHA1(fingerprintNamespace, data).String(), nil
}

// Verify compares sums against the checksums recorded for key. A key seen
// for the first time is recorded and reported as new.
func Verify(store Store, key Key, sums level.Checksums) (bool, error) {
	recorded, ok, err := store.Load(key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		if err := store.Save(key, sums); err != nil {
			return false, fmt.Errorf("save %s: %w", key, err)
		}
		return true, nil
	}
	return false, recorded.Compare(sums)
}

func cloneSums(sums level.Checksums) level.Checksums {
	dup := make(level.Checksums, len(sums))
	for s, v := range sums {
		dup[s] = v
	}
	return dup
}
