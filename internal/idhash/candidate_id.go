package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"strategy-lab/internal/domain"
)

// ComputeCandidateID computes a deterministic candidate_id using SHA256.
// Formula: SHA256(strategy|candidate.Key())
// Returns the first 16 hex characters, enough to key records within one strategy.
func ComputeCandidateID(strategyName string, candidate domain.Candidate) string {
	data := fmt.Sprintf("%s|%s", strategyName, candidate.Key())
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}
