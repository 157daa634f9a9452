package slug_test

import (
	"testing"

	"github.com/lessonforge/lessonforge/internal/slug"
)

func TestMake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bayesian Inference", "bayesian-inference"},
		{"  Bayesian   Inference  ", "bayesian-inference"},
		{"Bayesian Inference!", "bayesian-inference"},
		{"C++ Memory Models", "c-memory-models"},
		{"TCP/IP", "tcp-ip"},
		{"already-a-slug", "already-a-slug"},
		{"HÉLLO wörld", "héllo-wörld"},
		{"42 rules", "42-rules"},
		{"!!!", ""},
		{"", ""},
	}

	for _, c := range cases {
		if got := slug.Make(c.in); got != c.want {
			t.Errorf("Make(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMakeIsStable(t *testing.T) {
	// Normalizing twice must not change the result; the slug is the
	// dedup key and has to be a fixed point.
	in := "The  Art of  Memory!"
	once := slug.Make(in)
	if twice := slug.Make(once); twice != once {
		t.Fatalf("Make not idempotent: %q -> %q", once, twice)
	}
}
