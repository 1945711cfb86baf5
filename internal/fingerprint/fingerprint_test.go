package fingerprint_test

import (
	"testing"

	"openmic/internal/fingerprint"
)

func TestKeyIgnoresCaseAndWhitespace(t *testing.T) {
	base := fingerprint.Key("Bohemian Rhapsody", "Queen", "high")
	variants := []struct{ title, artist, quality string }{
		{"bohemian rhapsody", "queen", "HIGH"},
		{"  Bohemian   Rhapsody  ", "Queen", "high"},
		{"BOHEMIAN RHAPSODY", " queen ", "High"},
	}
	for _, v := range variants {
		if got := fingerprint.Key(v.title, v.artist, v.quality); got != base {
			t.Errorf("Key(%q, %q, %q) = %s, want %s", v.title, v.artist, v.quality, got, base)
		}
	}
}

func TestKeyDistinguishesWorks(t *testing.T) {
	base := fingerprint.Key("Bohemian Rhapsody", "Queen", "high")
	others := []struct{ title, artist, quality string }{
		{"Bohemian Rhapsody", "Queen", "low"},
		{"Bohemian Rhapsody", "Panic! At The Disco", "high"},
		{"Somebody to Love", "Queen", "high"},
	}
	for _, o := range others {
		if got := fingerprint.Key(o.title, o.artist, o.quality); got == base {
			t.Errorf("Key(%q, %q, %q) unexpectedly collided", o.title, o.artist, o.quality)
		}
	}
}

func TestKeyFieldBoundaries(t *testing.T) {
	if fingerprint.Key("ab", "c", "q") == fingerprint.Key("a", "bc", "q") {
		t.Fatal("field concatenation must not collide across boundaries")
	}
}

func TestKeyIsStableHex(t *testing.T) {
	key := fingerprint.Key("Africa", "Toto", "high")
	if len(key) != 32 {
		t.Fatalf("expected 32 hex chars, got %d (%s)", len(key), key)
	}
	if key != fingerprint.Key("Africa", "Toto", "high") {
		t.Fatal("expected deterministic key")
	}
}
