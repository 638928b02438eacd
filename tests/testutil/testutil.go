// Package testutil holds helpers shared by the integration suites:
// a recording event handler, stub domain events, and polling assertions
// for asynchronous outcomes.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ToJSONReader marshals v into a reader suitable for request bodies.
func ToJSONReader(t *testing.T, v interface{}) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}

// WaitForCondition polls condition until it returns true or the timeout
// elapses. It reports whether the condition was met.
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return false
}

// RequireEventually fails the test if condition does not become true within
// the timeout.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	if !WaitForCondition(t, condition, timeout, interval) {
		require.Fail(t, "Condition not met within timeout", msgAndArgs...)
	}
}
