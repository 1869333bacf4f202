package llm

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"
)

func generateBatchID() string {
	timestamp := time.Now().Unix()
	randomBytes := make([]byte, 8)
	rand.Read(randomBytes)

	id := make([]byte, 12)
	binary.BigEndian.PutUint32(id[:4], uint32(timestamp))
	copy(id[4:], randomBytes)

	return hex.EncodeToString(id)
}

func isValidBatchID(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil && len(s) == 24
}

// BatchIDFromRunID turns a run ID (usually a UUID) into the 24 hex character
// batch ID tellm groups calls by. Unusable IDs get a fresh one.
func BatchIDFromRunID(runID string) string {
	s := strings.ToLower(strings.ReplaceAll(runID, "-", ""))
	if len(s) > 24 {
		s = s[:24]
	}
	if !isValidBatchID(s) {
		return generateBatchID()
	}
	return s
}
