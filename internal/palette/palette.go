// Package palette provides the reference color table and nearest-name lookup.
//
// A Palette is loaded once, never mutated, and may be shared by any number of
// goroutines without locking.
//
// # Source Format
//
// One entry per line, comma separated:
//
//	name, hex, R, G, B
//
// The six-column variant used by common color datasets is also accepted:
//
//	id, name, hex, R, G, B
//
// A leading header row is skipped when its channel columns are not numeric.
// Rows with unusable channel values are skipped with a warning; a palette that
// ends up with no rows is a load error.
package palette

import (
	"bytes"
	_ "embed" // default palette
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"
)

//go:embed colors.csv
var defaultCSV []byte

// Entry is a single named reference color.
type Entry struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
	R    uint8  `json:"r"`
	G    uint8  `json:"g"`
	B    uint8  `json:"b"`
}

// Palette is an immutable, ordered collection of entries.
type Palette struct {
	entries []Entry
}

// LoadError reports a palette that could not be used at all.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load palette %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrNoEntries is wrapped by LoadError when no row could be parsed.
var ErrNoEntries = errors.New("no usable palette rows")

// New builds a palette from entries, copying the slice.
func New(entries []Entry) (*Palette, error) {
	if len(entries) == 0 {
		return nil, &LoadError{Source: "entries", Err: ErrNoEntries}
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Palette{entries: cp}, nil
}

// Load reads a palette file.
func Load(path string, logger zerolog.Logger) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer f.Close()

	p, err := parse(f, path, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("path", path).Int("entries", p.Len()).Msg("palette loaded")
	return p, nil
}

// Parse reads a palette from r.
func Parse(r io.Reader, logger zerolog.Logger) (*Palette, error) {
	return parse(r, "reader", logger)
}

// Default returns the embedded palette.
func Default() *Palette {
	p, err := parse(bytes.NewReader(defaultCSV), "embedded", zerolog.Nop())
	if err != nil {
		panic(fmt.Sprintf("embedded palette: %v", err))
	}
	return p
}

func parse(r io.Reader, source string, logger zerolog.Logger) (*Palette, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	entries := make([]Entry, 0, 64)
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				logger.Warn().Str("source", source).Int("line", perr.Line).Err(err).Msg("skipping unreadable palette row")
				continue
			}
			return nil, &LoadError{Source: source, Err: err}
		}
		if isBlank(record) {
			continue
		}

		entry, err := parseRecord(record)
		if err != nil {
			if line == 1 && len(entries) == 0 {
				logger.Debug().Str("source", source).Strs("row", record).Err(err).Msg("treating first row as header")
				continue
			}
			logger.Warn().Str("source", source).Int("line", line).Err(err).Msg("skipping palette row")
			continue
		}
		if _, err := colorful.Hex(entry.Hex); err != nil {
			logger.Warn().Str("source", source).Int("line", line).Str("hex", entry.Hex).Msg("palette hex does not parse, keeping RGB columns")
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, &LoadError{Source: source, Err: ErrNoEntries}
	}
	return &Palette{entries: entries}, nil
}

// parseRecord accepts the five-column and six-column layouts.
func parseRecord(record []string) (Entry, error) {
	var fields []string
	switch len(record) {
	case 5:
		fields = record
	case 6:
		fields = record[1:]
	default:
		return Entry{}, fmt.Errorf("expected 5 or 6 columns, got %d", len(record))
	}

	name := strings.TrimSpace(fields[0])
	if name == "" {
		return Entry{}, fmt.Errorf("empty color name")
	}

	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(fields[2+i]))
		if err != nil {
			return Entry{}, fmt.Errorf("channel %d: %w", i, err)
		}
		if v < 0 || v > 255 {
			return Entry{}, fmt.Errorf("channel %d out of range: %d", i, v)
		}
		rgb[i] = uint8(v)
	}

	hex := strings.TrimSpace(fields[1])
	if hex != "" && !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}

	return Entry{Name: name, Hex: strings.ToUpper(hex), R: rgb[0], G: rgb[1], B: rgb[2]}, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Len returns the number of entries.
func (p *Palette) Len() int { return len(p.entries) }

// At returns the i-th entry in stored order.
func (p *Palette) At(i int) Entry { return p.entries[i] }

// Entries returns a copy of all entries in stored order.
func (p *Palette) Entries() []Entry {
	cp := make([]Entry, len(p.entries))
	copy(cp, p.entries)
	return cp
}

// Lookup returns the last entry with the given name.
func (p *Palette) Lookup(name string) (Entry, bool) {
	for i := len(p.entries) - 1; i >= 0; i-- {
		if p.entries[i].Name == name {
			return p.entries[i], true
		}
	}
	return Entry{}, false
}
