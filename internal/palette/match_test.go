package palette

import "testing"

func testPalette(t *testing.T, entries ...Entry) *Palette {
	t.Helper()
	p, err := New(entries)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name       string
		r1, g1, b1 uint8
		r2, g2, b2 uint8
		want       int
	}{
		{"identical", 10, 20, 30, 10, 20, 30, 0},
		{"one channel", 255, 0, 0, 250, 0, 0, 5},
		{"all channels", 0, 0, 0, 255, 255, 255, 765},
		{"symmetric", 100, 50, 25, 50, 100, 75, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.r1, tt.g1, tt.b1, tt.r2, tt.g2, tt.b2); got != tt.want {
				t.Errorf("Distance: got %d, want %d", got, tt.want)
			}
			if got := Distance(tt.r2, tt.g2, tt.b2, tt.r1, tt.g1, tt.b1); got != tt.want {
				t.Errorf("Distance (swapped): got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNearest_ExactEntries(t *testing.T) {
	p := Default()
	for _, e := range p.Entries() {
		t.Run(e.Name, func(t *testing.T) {
			got, d := p.NearestEntry(e.R, e.G, e.B)
			if d != 0 {
				t.Errorf("distance: got %d, want 0 (matched %s)", d, got.Name)
			}
			if got.R != e.R || got.G != e.G || got.B != e.B {
				t.Errorf("matched entry %+v does not equal query %+v", got, e)
			}
		})
	}
}

func TestNearest_Closest(t *testing.T) {
	p := testPalette(t,
		Entry{Name: "Black", R: 0, G: 0, B: 0},
		Entry{Name: "Red", R: 255, G: 0, B: 0},
		Entry{Name: "White", R: 255, G: 255, B: 255},
	)

	tests := []struct {
		r, g, b uint8
		want    string
	}{
		{250, 10, 5, "Red"},
		{20, 20, 20, "Black"},
		{240, 240, 230, "White"},
	}
	for _, tt := range tests {
		if got := p.Nearest(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("Nearest(%d,%d,%d): got %s, want %s", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

func TestNearest_LastTieWins(t *testing.T) {
	t.Run("duplicate exact colors", func(t *testing.T) {
		p := testPalette(t,
			Entry{Name: "Red", R: 255},
			Entry{Name: "Scarlet", R: 255},
		)
		if got := p.Nearest(255, 0, 0); got != "Scarlet" {
			t.Errorf("got %s, want Scarlet (last exact tie)", got)
		}
	})

	t.Run("equidistant neighbours", func(t *testing.T) {
		p := testPalette(t,
			Entry{Name: "Low", R: 100},
			Entry{Name: "High", R: 110},
			Entry{Name: "Far", R: 200},
		)
		// 105 is 5 away from both Low and High.
		if got := p.Nearest(105, 0, 0); got != "High" {
			t.Errorf("got %s, want High (last equidistant entry)", got)
		}
	})

	t.Run("earlier strictly closer still wins", func(t *testing.T) {
		p := testPalette(t,
			Entry{Name: "Close", R: 101},
			Entry{Name: "Tie", R: 110},
			Entry{Name: "Tie2", R: 90},
		)
		if got := p.Nearest(100, 0, 0); got != "Close" {
			t.Errorf("got %s, want Close", got)
		}
	})
}

func TestNearest_RedScenario(t *testing.T) {
	p := testPalette(t, Entry{Name: "Red", Hex: "#FF0000", R: 255, G: 0, B: 0})
	if got := p.Nearest(255, 0, 0); got != "Red" {
		t.Errorf("got %s, want Red", got)
	}
}
