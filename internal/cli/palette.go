package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ironsheep/color-detect/internal/imaging"
	"github.com/ironsheep/color-detect/internal/palette"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"
)

func newPaletteCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "palette",
		Short: "Inspect the reference palette",
	}
	cmd.AddCommand(newPaletteListCommand(a), newPaletteNearestCommand(a))
	return cmd
}

func (a *app) loadPalette() (*palette.Palette, error) {
	if a.cfg.PalettePath == "" {
		return palette.Default(), nil
	}
	return palette.Load(a.cfg.PalettePath, a.logger)
}

func newPaletteListCommand(a *app) *cobra.Command {
	var contains string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the palette entries in stored order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			pal, err := a.loadPalette()
			if err != nil {
				return err
			}
			filter := strings.ToLower(contains)
			entries := make([]palette.Entry, 0, pal.Len())
			for _, e := range pal.Entries() {
				if filter == "" || strings.Contains(strings.ToLower(e.Name), filter) {
					entries = append(entries, e)
				}
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&contains, "contains", "", "Only entries whose name contains this text")
	return cmd
}

type nearestResult struct {
	Color    imaging.RGB   `json:"color"`
	Hex      string        `json:"hex"`
	Name     string        `json:"name"`
	Distance int           `json:"distance"`
	Entry    palette.Entry `json:"entry"`
}

func newPaletteNearestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "nearest <R G B | #RRGGBB>",
		Short: "Name the palette entry closest to a color",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("expected R G B or a hex color, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			c, err := parseColorArgs(args)
			if err != nil {
				return err
			}
			pal, err := a.loadPalette()
			if err != nil {
				return err
			}
			entry, dist := pal.NearestEntry(c.R, c.G, c.B)
			return writeJSON(cmd.OutOrStdout(), nearestResult{
				Color:    c,
				Hex:      c.Hex(),
				Name:     entry.Name,
				Distance: dist,
				Entry:    entry,
			})
		},
	}
}

func parseColorArgs(args []string) (imaging.RGB, error) {
	if len(args) == 1 {
		hex := args[0]
		if !strings.HasPrefix(hex, "#") {
			hex = "#" + hex
		}
		c, err := colorful.Hex(hex)
		if err != nil {
			return imaging.RGB{}, fmt.Errorf("invalid hex color %q: %w", args[0], err)
		}
		r, g, b := c.RGB255()
		return imaging.RGB{R: r, G: g, B: b}, nil
	}

	var ch [3]uint8
	for i, s := range args {
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return imaging.RGB{}, fmt.Errorf("invalid channel %q: must be 0-255", s)
		}
		ch[i] = uint8(v)
	}
	return imaging.RGB{R: ch[0], G: ch[1], B: ch[2]}, nil
}
