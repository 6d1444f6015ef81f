package gateway

import (
	"testing"
	"time"
)

func TestLinearBackoff(t *testing.T) {
	b := linearBackoff(2 * time.Second)

	want := []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second, 8 * time.Second}
	for i, w := range want {
		got, stop := b.Next()
		if stop {
			t.Fatalf("backoff stopped early at step %d", i)
		}
		if got != w {
			t.Errorf("step %d = %v, want %v", i, got, w)
		}
	}
}
