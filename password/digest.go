package password

import (
	"crypto/sha512"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Digest names the one-way function used as the stretching primitive.
type Digest string

const (
	// DigestSHA512 is the default primitive.
	DigestSHA512 Digest = "sha512"
	// DigestSHA3_512 uses Keccak-based SHA3-512.
	DigestSHA3_512 Digest = "sha3-512"
	// DigestBLAKE2b512 uses unkeyed BLAKE2b-512.
	DigestBLAKE2b512 Digest = "blake2b-512"
)

// Constructor returns a factory for fresh hash states of d.
func (d Digest) Constructor() (func() hash.Hash, error) {
	switch d {
	case DigestSHA512, "":
		return sha512.New, nil
	case DigestSHA3_512:
		return sha3.New512, nil
	case DigestBLAKE2b512:
		if _, err := blake2b.New512(nil); err != nil {
			return nil, err
		}
		return func() hash.Hash {
			h, _ := blake2b.New512(nil)
			return h
		}, nil
	default:
		return nil, fmt.Errorf("unsupported digest %q", string(d))
	}
}
