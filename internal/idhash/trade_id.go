package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(strategy|candidate_key|scenario_id|symbol|entry_time|leg)
// leg distinguishes the scale-out and final legs of one position.
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	strategyName string,
	candidateKey string,
	scenarioID string,
	symbol string,
	entryTime int64,
	leg int,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		strategyName,
		candidateKey,
		scenarioID,
		symbol,
		entryTime,
		leg,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
