// Package testutil provides the small set of HTTP test fixtures used
// by internal/httpapi's handler tests, so they all build requests and
// assert status codes the same way.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// AssertStatusCode fails the test if got does not match want.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest builds a bodyless HTTP request against one of this
// module's handler routes (e.g. "/match", "/cache/clear").
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a response recorder for capturing a
// handler's output.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
