package imaging

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrUnsupportedFormat is returned by Save for file extensions it cannot encode.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// DecodeError reports an image that exists but could not be decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to decode image: %v", e.Err)
	}
	return fmt.Sprintf("failed to decode image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reads an image from r and returns it as a frame. EXIF orientation is
// applied to JPEG input.
func Decode(r io.Reader) (*image.RGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return clone.AsRGBA(img), nil
}

// Load opens and decodes the image at path. A missing or unreadable file is
// returned as the underlying os error; undecodable content as *DecodeError.
func Load(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	frame, err := Decode(f)
	if err != nil {
		var derr *DecodeError
		if errors.As(err, &derr) {
			derr.Path = path
		}
		return nil, err
	}
	return frame, nil
}

// Save encodes img to path, choosing the encoder from the file extension.
// PNG and JPEG are supported.
func Save(path string, img image.Image) error {
	enc, err := EncoderFor(path)
	if err != nil {
		return err
	}
	if err := imgio.Save(path, img, enc); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// EncoderFor returns the encoder matching the extension of path.
func EncoderFor(path string) (imgio.Encoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return imgio.PNGEncoder(), nil
	case ".jpg", ".jpeg":
		return imgio.JPEGEncoder(95), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// IsImagePath reports whether path has an extension Load can decode.
func IsImagePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

// ImageCache keeps decoded frames keyed by path so repeated requests for the
// same file skip disk I/O. It is safe for concurrent use.
//
// Cached frames stay in memory until Evict or Clear is called.
type ImageCache struct {
	mu     sync.RWMutex
	frames map[string]*image.RGBA
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		frames: make(map[string]*image.RGBA),
	}
}

// Load returns the cached frame for path, decoding it on first use.
//
// The cache is keyed on the exact path string, so a relative and an absolute
// path to the same file are cached separately.
func (c *ImageCache) Load(path string) (*image.RGBA, error) {
	c.mu.RLock()
	if frame, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return frame, nil
	}
	c.mu.RUnlock()

	frame, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.frames[path] = frame
	c.mu.Unlock()

	return frame, nil
}

// Len returns the number of cached frames.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Clear drops every cached frame.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]*image.RGBA)
	c.mu.Unlock()
}

// Evict drops the frame cached for path, if any.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

// ImageInfo describes an image file on disk.
type ImageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadImageInfo loads path through cache and reports its dimensions, format
// and size. The format comes from the file extension.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	frame, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch format {
	case "jpg":
		format = "jpeg"
	case "tif":
		format = "tiff"
	case "":
		format = "unknown"
	}

	b := frame.Bounds()
	return &ImageInfo{
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}
