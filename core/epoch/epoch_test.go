package epoch

import "testing"

func TestConfigOf(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cases := []struct {
		ts   int64
		want uint64
	}{
		{ts: -5, want: 0},
		{ts: 0, want: 0},
		{ts: int64(DayMs) - 1, want: 0},
		{ts: int64(DayMs), want: 1},
		{ts: 19_000 * int64(DayMs), want: 19_000},
	}
	for _, tc := range cases {
		if got := cfg.Of(tc.ts); got != tc.want {
			t.Fatalf("Of(%d) = %d, want %d", tc.ts, got, tc.want)
		}
	}
	if cfg.Start(3) != 3*int64(DayMs) {
		t.Fatalf("unexpected epoch start")
	}
	if (Config{}).Validate() == nil {
		t.Fatalf("expected zero length to be rejected")
	}
}

func TestWindowContains(t *testing.T) {
	w := NewWindow(1_000, 500)
	if w.Contains(999) || !w.Contains(1_000) || !w.Contains(1_499) || w.Contains(1_500) {
		t.Fatalf("unexpected bounded window behaviour: %+v", w)
	}
	open := NewWindow(1_000, 0)
	if open.Contains(999) || !open.Contains(1<<40) {
		t.Fatalf("unexpected open window behaviour: %+v", open)
	}
}
