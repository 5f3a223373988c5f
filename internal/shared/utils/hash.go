package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256     HashAlgorithm = "sha256"
	BLAKE2b256 HashAlgorithm = "blake2b-256"
)

// Hasher computes content digests written as "<algorithm>:<hex>".
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a hasher for algorithm.
func NewHasher(algorithm HashAlgorithm) (*Hasher, error) {
	switch algorithm {
	case SHA256, BLAKE2b256:
		return &Hasher{algorithm: algorithm}, nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return &Hasher{algorithm: SHA256}
}

// Algorithm returns the algorithm name.
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

func (h *Hasher) new() hash.Hash {
	switch h.algorithm {
	case BLAKE2b256:
		// only fails for keys longer than 64 bytes
		d, _ := blake2b.New256(nil)
		return d
	default:
		return sha256.New()
	}
}

// Hash computes the digest of data.
func (h *Hasher) Hash(data []byte) string {
	d := h.new()
	d.Write(data)
	return h.format(d)
}

// HashReader computes the digest of everything r yields.
func (h *Hasher) HashReader(r io.Reader) (string, error) {
	d := h.new()
	if _, err := io.Copy(d, r); err != nil {
		return "", err
	}
	return h.format(d), nil
}

// HashFile computes the digest of the file at p.
func (h *Hasher) HashFile(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.HashReader(f)
}

func (h *Hasher) format(d hash.Hash) string {
	return string(h.algorithm) + ":" + hex.EncodeToString(d.Sum(nil))
}

// ParseDigest splits "<algorithm>:<hex>" and returns a hasher for the algorithm together
// with the normalized digest. A bare hex string is taken as sha256.
func ParseDigest(digest string) (*Hasher, string, error) {
	alg, sum, ok := strings.Cut(strings.TrimSpace(digest), ":")
	if !ok {
		alg, sum = string(SHA256), alg
	}

	h, err := NewHasher(HashAlgorithm(strings.ToLower(alg)))
	if err != nil {
		return nil, "", err
	}
	sum = strings.ToLower(sum)
	raw, err := hex.DecodeString(sum)
	if err != nil {
		return nil, "", fmt.Errorf("invalid digest %q: %w", digest, err)
	}
	if len(raw) != h.new().Size() {
		return nil, "", fmt.Errorf("invalid digest %q: want %d bytes, got %d", digest, h.new().Size(), len(raw))
	}
	return h, string(h.algorithm) + ":" + sum, nil
}
