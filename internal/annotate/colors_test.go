package annotate

import (
	"image/color"
	"reflect"
	"testing"
)

func TestRandom(t *testing.T) {
	got := Random{Seed: 42}.Colors(5)
	if len(got) != 5 {
		t.Fatalf("len: got %d", len(got))
	}
	for _, c := range got {
		if c.A != 255 {
			t.Errorf("color %v must be opaque", c)
		}
	}
	if again := (Random{Seed: 42}).Colors(5); !reflect.DeepEqual(got, again) {
		t.Error("seeded colors must repeat across calls")
	}
	if prefix := (Random{Seed: 42}).Colors(3); !reflect.DeepEqual(prefix, got[:3]) {
		t.Error("detection i must get the same color regardless of n")
	}
	if len((Random{}).Colors(0)) != 0 {
		t.Error("n=0 must give no colors")
	}
}

func TestGolden(t *testing.T) {
	got := Golden{}.Colors(12)
	seen := make(map[color.RGBA]bool)
	for _, c := range got {
		if seen[c] {
			t.Errorf("duplicate color %v", c)
		}
		seen[c] = true
	}
	if !reflect.DeepEqual(got, Golden{}.Colors(12)) {
		t.Error("golden colors must be deterministic")
	}
}

func TestNewStrategy(t *testing.T) {
	tests := []struct {
		name string
		want ColorStrategy
	}{
		{"", Random{Seed: 3}},
		{"random", Random{Seed: 3}},
		{"golden", Golden{}},
	}
	for _, tt := range tests {
		got, err := NewStrategy(tt.name, 3)
		if err != nil {
			t.Fatalf("%q: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%q: got %#v, want %#v", tt.name, got, tt.want)
		}
	}
	if _, err := NewStrategy("rainbow", 0); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestTextColor(t *testing.T) {
	black := color.RGBA{A: 255}
	white := color.RGBA{255, 255, 255, 255}

	tests := []struct {
		bg   color.RGBA
		want color.RGBA
	}{
		{color.RGBA{255, 255, 0, 255}, black},
		{color.RGBA{255, 255, 255, 255}, black},
		{color.RGBA{0, 0, 128, 255}, white},
		{color.RGBA{255, 0, 0, 255}, white},
	}
	for _, tt := range tests {
		if got := textColor(tt.bg); got != tt.want {
			t.Errorf("textColor(%v): got %v, want %v", tt.bg, got, tt.want)
		}
	}
}
