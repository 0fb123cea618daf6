package password

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"hash"
	"strings"
)

const (
	// DefaultIterations is the number of digest rounds per verification.
	DefaultIterations = 20000
	minIterations     = 1
)

// Config selects the digest primitive and the per-verification cost.
type Config struct {
	Iterations int
	Digest     Digest
}

// Stretcher derives verification hashes. It is immutable after construction
// and safe for concurrent use.
type Stretcher struct {
	iterations int
	digest     Digest
	newHash    func() hash.Hash
}

// NewStretcher validates cfg and returns a Stretcher.
func NewStretcher(cfg Config) (*Stretcher, error) {
	if cfg.Iterations < minIterations {
		return nil, errors.New("password iterations must be >= 1")
	}
	if cfg.Digest == "" {
		cfg.Digest = DigestSHA512
	}
	newHash, err := cfg.Digest.Constructor()
	if err != nil {
		return nil, err
	}
	return &Stretcher{
		iterations: cfg.Iterations,
		digest:     cfg.Digest,
		newHash:    newHash,
	}, nil
}

// Iterations reports the configured round count.
func (s *Stretcher) Iterations() int {
	return s.iterations
}

// Digest reports the configured primitive.
func (s *Stretcher) Digest() Digest {
	return s.digest
}

// Derive returns the lowercase hex verification hash for credential under
// the salt derived from saltSource.
func (s *Stretcher) Derive(saltSource, credential string) string {
	h := s.newHash()

	h.Write([]byte(saltSource))
	salt := hex.EncodeToString(h.Sum(nil))

	input := make([]byte, 0, 2*len(salt)+len(credential))
	input = append(input, salt...)
	input = append(input, credential...)
	input = append(input, salt...)

	sum := make([]byte, 0, h.Size())
	for i := 0; i < s.iterations; i++ {
		h.Reset()
		h.Write(input)
		sum = h.Sum(sum[:0])
	}

	return hex.EncodeToString(sum)
}

// Verify derives the hash for credential and compares it with storedHash in
// constant time. storedHash is matched case-insensitively.
func (s *Stretcher) Verify(saltSource, credential, storedHash string) bool {
	return Equal(s.Derive(saltSource, credential), strings.ToLower(strings.TrimSpace(storedHash)))
}

// Equal reports whether a and b are identical without leaking the position
// of the first difference.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Derive is a convenience wrapper for one-off derivations, e.g. when
// enrolling a credential into a store.
func Derive(d Digest, saltSource, credential string, iterations int) (string, error) {
	s, err := NewStretcher(Config{Iterations: iterations, Digest: d})
	if err != nil {
		return "", err
	}
	return s.Derive(saltSource, credential), nil
}
