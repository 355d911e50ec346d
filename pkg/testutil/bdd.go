package testutil

import "testing"

// Given, When and Then nest subtests so a lease scenario reads top to bottom
// in `go test -v` output. Each step runs only if the enclosing one passed.

func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	if t.Failed() {
		t.Skip("earlier step failed")
	}
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	if t.Failed() {
		t.Skip("earlier step failed")
	}
	t.Run("Then "+desc, fn)
}
