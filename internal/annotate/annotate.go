// Package annotate draws detection boxes and their sequence numbers onto
// frames.
package annotate

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/anthonynsimon/bild/clone"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Mark is one detection to draw.
type Mark struct {
	Rect     image.Rectangle
	Sequence int
	Color    color.RGBA

	// Name is appended to the tag when the annotator shows names.
	Name string
}

// Annotator draws marks. The zero value draws 2 pixel outlines with number
// only tags.
type Annotator struct {
	Thickness int
	ShowNames bool
}

const tagPadding = 2

// Annotate returns a copy of frame with every mark drawn on it. The input
// frame is not modified. Marks are drawn in order, so later marks paint over
// earlier ones where they overlap.
func (a Annotator) Annotate(frame image.Image, marks []Mark) *image.RGBA {
	out := clone.AsRGBA(frame)
	for _, m := range marks {
		a.outline(out, m.Rect, m.Color)
		a.tag(out, m)
	}
	return out
}

func (a Annotator) thickness() int {
	if a.Thickness < 1 {
		return 2
	}
	return a.Thickness
}

// outline draws the border of r growing inwards, clipped to the frame.
func (a Annotator) outline(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	t := min(a.thickness(), (min(r.Dx(), r.Dy())+1)/2)
	src := image.NewUniform(c)

	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
}

// Label is the tag text for m.
func (a Annotator) Label(m Mark) string {
	text := strconv.Itoa(m.Sequence)
	if a.ShowNames && m.Name != "" {
		text += " " + m.Name
	}
	return text
}

// tag writes the label on a filled box in the mark's color, just above the
// top-left corner of the mark, or inside it when there is no room above.
func (a Annotator) tag(dst *image.RGBA, m Mark) {
	face := basicfont.Face7x13
	text := a.Label(m)
	metrics := face.Metrics()

	w := font.MeasureString(face, text).Ceil() + 2*tagPadding
	h := metrics.Height.Ceil() + 2*tagPadding

	bounds := dst.Bounds()
	x := max(m.Rect.Min.X, bounds.Min.X)
	y := m.Rect.Min.Y - h
	if y < bounds.Min.Y {
		y = max(m.Rect.Min.Y, bounds.Min.Y)
	}
	if x+w > bounds.Max.X {
		x = max(bounds.Max.X-w, bounds.Min.X)
	}
	box := image.Rect(x, y, x+w, y+h).Intersect(bounds)
	if box.Empty() {
		return
	}

	draw.Draw(dst, box, image.NewUniform(m.Color), image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor(m.Color)),
		Face: face,
		Dot:  fixed.P(x+tagPadding, y+tagPadding+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)
}
