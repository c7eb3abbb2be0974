package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests.
// The version suffix leaves room for algorithm migration.
const (
	DomainMove  = "movelog/move/v1"
	DomainLog   = "movelog/log/v1"
	DomainState = "movelog/state/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MoveID computes the content-addressed ID of a single record.
// Index is part of the content, so the same move at two positions has two IDs.
func MoveID(m MoveRecord) (string, error) {
	canonical, err := MarshalCanonical(RecordValue(m))
	if err != nil {
		return "", fmt.Errorf("MoveID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainMove, canonical), nil
}

// LogDigest computes the digest of an ordered record sequence.
// Replicas holding the same canonical history have the same digest.
func LogDigest(records []MoveRecord) (string, error) {
	canonical, err := MarshalLog(records)
	if err != nil {
		return "", fmt.Errorf("LogDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainLog, canonical), nil
}

// StateDigest computes the digest of a board state snapshot.
func StateDigest(state Object) (string, error) {
	canonical, err := MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("StateDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// MustLogDigest is like LogDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustLogDigest(records []MoveRecord) string {
	d, err := LogDigest(records)
	if err != nil {
		panic(err)
	}
	return d
}
