package logger

import "testing"

func TestNewLevels(t *testing.T) {
	for _, lvl := range []string{"", "debug", "info", "warn", "error"} {
		l, err := New(lvl)
		if err != nil {
			t.Fatalf("New(%q): %v", lvl, err)
		}
		l.With("component", "test").Debugf("level %s", lvl)
	}
	if _, err := New("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Infof("discarded %d", 1)
	l.Errorf("discarded %d", 2)
	l.Sync()
}
