package version

import "testing"

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.0.1", "1.0.0", 1},
		{"1.9", "1.10", -1},
		{"2.0", "1.99", 1},
		{"1.0", "1.0.1", -1},
		{"1.0rc1", "1.0", -1},
		{"1.0", "1.0rc1", 1},
		{"1.0a", "1.0b", -1},
		{"1.0.0-1", "1.0.0-2", -1},
		{"1.0.0-2", "1.0.0-1", 1},
		{"1.0.0", "1.0.0-3", 0},
		{"1:1.0.0", "2.0.0", 1},
		{"1:1.0.0", "2:0.1", -1},
		{"0:1.0", "1.0", 0},
		{"1.0_1", "1.0.1", 0},
		{"007", "7", 0},
	}

	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNeedsUpdate(t *testing.T) {
	tests := []struct {
		installed, candidate string
		want                 bool
	}{
		{"1.0.0-1", "1.0.0-2", true},
		{"1.0.0-1", "1.0.0-1", false},
		{"2.0.0-1", "1.0.0-1", false}, // downgrade is not an update
		{"1.2.3-1", "1:0.1-1", true},  // epoch bump always wins
	}

	for _, tt := range tests {
		if got := NeedsUpdate(tt.installed, tt.candidate); got != tt.want {
			t.Errorf("NeedsUpdate(%q, %q) = %v, want %v", tt.installed, tt.candidate, got, tt.want)
		}
	}
}
