package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// TravelRuleRef derives a correlation token for a travel-rule payload: the
// hex SHA-256 of its compact JSON encoding with keys sorted. An empty payload
// yields "".
func TravelRuleRef(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	// encoding/json writes map keys in sorted order at every level.
	blob, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode travel rule payload: %w", err)
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}
