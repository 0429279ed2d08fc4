package synced

import "testing"

func TestBackoffProgression(t *testing.T) {
	spin, yield := BackoffLimits()

	var b Backoff
	for i := uint32(0); i <= spin; i++ {
		if b.IsYielding() {
			t.Fatalf("step %d: expected spinning phase", i)
		}
		b.Snooze()
	}
	if !b.IsYielding() {
		t.Fatal("expected yielding phase after spin limit")
	}
	for i := spin + 1; i <= yield; i++ {
		if b.IsCompleted() {
			t.Fatalf("step %d: completed too early", i)
		}
		b.Snooze()
	}
	if !b.IsCompleted() {
		t.Fatal("expected backoff to be completed after yield limit")
	}

	b.Reset()
	if b.IsYielding() || b.IsCompleted() {
		t.Fatal("reset did not rewind the backoff")
	}
}

func TestBackoffSpinNeverCompletes(t *testing.T) {
	var b Backoff
	for i := 0; i < 100; i++ {
		b.Spin()
	}
	if b.IsCompleted() {
		t.Fatal("Spin must stop advancing at the spin limit")
	}
}

func TestSetBackoffLimits(t *testing.T) {
	spin, yield := BackoffLimits()
	defer SetBackoffLimits(spin, yield)

	SetBackoffLimits(3, 2)
	s, y := BackoffLimits()
	if s != 3 || y != 3 {
		t.Fatalf("expected yield to be clamped to spin, got spin=%d yield=%d", s, y)
	}

	SetBackoffLimits(0, 8)
	s, y = BackoffLimits()
	if s != 3 || y != 8 {
		t.Fatalf("zero spin must keep previous value, got spin=%d yield=%d", s, y)
	}
}

func BenchmarkBackoffSnooze(b *testing.B) {
	for i := 0; i < b.N; i++ {
		var bo Backoff
		for !bo.IsYielding() {
			bo.Snooze()
		}
	}
}
