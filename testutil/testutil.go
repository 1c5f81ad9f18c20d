// Package testutil provides small, shared fixtures for tests across the
// module's packages: a quiet logger and deterministic leaf generation.
package testutil

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// NewTestLogger returns a SugaredLogger that writes to t.Log, so output
// only surfaces for failing or verbose tests.
func NewTestLogger(t *testing.T) *zap.SugaredLogger {
	return zaptest.NewLogger(t).Sugar()
}

// GenerateLeaves deterministically produces n leaf payloads of the form
// "<prefix>_<i>", matching the fixture shape used throughout the tree and
// streaming-builder test suites.
func GenerateLeaves(n int, prefix string) [][]byte {
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = []byte(fmt.Sprintf("%s_%d", prefix, i))
	}
	return out
}
