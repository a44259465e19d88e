package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewSessionToken returns the process-level token mixed into every run ID.
// A fresh token per process keeps run IDs distinct across repeated runs of
// the same scenario.
func NewSessionToken() string {
	return uuid.NewString()
}

// RunID derives the run-correlation key shared by every session of one
// scenario class within a process run. It is a grouping key for the metrics
// store, not a security token.
func RunID(sessionToken, scenarioName string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%s", sessionToken, scenarioName)))
	return hex.EncodeToString(sum[:])[:16]
}
