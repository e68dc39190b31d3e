package composition

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"

	"unwrapped/internal/profile"
)

// Fingerprint hashes the marshalled parameters. Two requests with equal
// fingerprints would render the same video.
func Fingerprint(p *Parameters) (string, error) {
	if p == nil {
		return "", errors.New("parameters missing")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Memo caches the derivation for one stats snapshot. A different record
// (by identity) replaces the cached result; distinct records never share it.
type Memo struct {
	deriver *Deriver

	mu     sync.Mutex
	stats  *profile.Stats
	params *Parameters
	filled bool
}

// NewMemo returns a Memo over d, or over the production deriver if d is nil.
func NewMemo(d *Deriver) *Memo {
	if d == nil {
		d = defaultDeriver
	}
	return &Memo{deriver: d}
}

// Derive returns the cached parameters for stats, deriving them on first use.
func (m *Memo) Derive(stats *profile.Stats) *Parameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.filled && m.stats == stats {
		return m.params
	}
	m.stats = stats
	m.params = m.deriver.Derive(stats)
	m.filled = true
	return m.params
}
