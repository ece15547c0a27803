package store

import "testing"

func TestChunkRange(t *testing.T) {
	var windows [][2]int
	err := ChunkRange(7, 3, func(start, end int) error {
		windows = append(windows, [2]int{start, end})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]int{{0, 3}, {3, 6}, {6, 7}}
	if len(windows) != len(want) {
		t.Fatalf("expected %v, got %v", want, windows)
	}
	for i := range want {
		if windows[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, windows)
		}
	}
}

func TestChunkRange_Empty(t *testing.T) {
	calls := 0
	if err := ChunkRange(0, 3, func(start, end int) error {
		calls++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("expected no windows for empty range, got %d", calls)
	}
}

func TestContainsFold(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Web Developer", "web developer", true},
		{"Software Developer", "Senior Software Developer", true},
		{"Senior Software Developer", "Software Developer", true},
		{"Web Developer", "Database Administrator", false},
		{"", "anything", false},
		{"anything", "", false},
	}
	for _, c := range cases {
		if got := ContainsFold(c.a, c.b); got != c.want {
			t.Fatalf("ContainsFold(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
