package ratelimit

import (
	"testing"
	"time"
)

func TestAllowBurstThenDeny(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, 0.001) {
			t.Fatalf("call %d: want allowed within burst", i)
		}
	}
	if l.Allow("k", 3, 0.001) {
		t.Fatal("want denied after burst exhausted")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	if !l.Allow("k", 1, 100) {
		t.Fatal("first call should pass")
	}
	if l.Allow("k", 1, 100) {
		t.Fatal("bucket should be empty")
	}
	time.Sleep(50 * time.Millisecond)
	if !l.Allow("k", 1, 100) {
		t.Fatal("bucket should have refilled")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0.001) {
		t.Fatal("a should pass")
	}
	if !l.Allow("b", 1, 0.001) {
		t.Fatal("b should pass despite a's empty bucket")
	}
}
