package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createInMemoryImage creates a uniformly filled frame.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates a frame with red top-left, green top-right, blue
// bottom-left and white bottom-right quadrants.
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255}
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255}
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255}
			} else {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRGBOf(t *testing.T) {
	tests := []struct {
		name string
		in   color.Color
		want RGB
	}{
		{"rgba", color.RGBA{10, 20, 30, 255}, RGB{10, 20, 30}},
		{"nrgba opaque", color.NRGBA{200, 100, 50, 255}, RGB{200, 100, 50}},
		{"gray", color.Gray{128}, RGB{128, 128, 128}},
		{"black", color.Black, RGB{0, 0, 0}},
		{"white", color.White, RGB{255, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RGBOf(tt.in); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRGB_Hex(t *testing.T) {
	tests := []struct {
		c    RGB
		want string
	}{
		{RGB{255, 0, 0}, "#FF0000"},
		{RGB{0, 0, 0}, "#000000"},
		{RGB{18, 52, 86}, "#123456"},
	}
	for _, tt := range tests {
		if got := tt.c.Hex(); got != tt.want {
			t.Errorf("%v.Hex(): got %s, want %s", tt.c, got, tt.want)
		}
	}
}

func TestRGB_RGBA(t *testing.T) {
	got := RGB{1, 2, 3}.RGBA()
	if got != (color.RGBA{1, 2, 3, 255}) {
		t.Errorf("got %v", got)
	}
}

func TestClampChannel(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-5, 0},
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{127.6, 128},
		{254.5, 255},
		{300, 255},
	}
	for _, tt := range tests {
		if got := clampChannel(tt.in); got != tt.want {
			t.Errorf("clampChannel(%v): got %d, want %d", tt.in, got, tt.want)
		}
	}
}
