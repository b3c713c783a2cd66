package logging

import "testing"

func TestNewDefaultsToInfo(t *testing.T) {
	logger := New("bogus")
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected a usable logger for unknown level")
	}
}

func TestWithComponentReturnsChild(t *testing.T) {
	parent := Default()
	child := parent.WithComponent("calendar")
	if child == parent {
		t.Fatal("expected a distinct child logger")
	}
	if child.Logger == nil {
		t.Fatal("child logger not initialized")
	}
}
