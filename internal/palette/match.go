package palette

// Distance is the L1 (Manhattan) distance between two RGB triples.
func Distance(r1, g1, b1, r2, g2, b2 uint8) int {
	return absDiff(r1, r2) + absDiff(g1, g2) + absDiff(b1, b2)
}

// NearestEntry returns the entry closest to (r, g, b) and its distance.
//
// Entries are scanned in stored order and an entry whose distance is less than
// or equal to the best so far replaces it, so among exact ties the last entry
// wins. Existing color datasets were labeled against this rule; keep it.
func (p *Palette) NearestEntry(r, g, b uint8) (Entry, int) {
	best := -1
	minimum := 1 << 30
	for i, e := range p.entries {
		d := Distance(r, g, b, e.R, e.G, e.B)
		if d <= minimum {
			minimum = d
			best = i
		}
	}
	return p.entries[best], minimum
}

// Nearest returns the name of the entry closest to (r, g, b).
func (p *Palette) Nearest(r, g, b uint8) string {
	e, _ := p.NearestEntry(r, g, b)
	return e.Name
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
