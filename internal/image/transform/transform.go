package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/gift"
	"golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 1920
	DefaultJPEGQuality  = 80
)

// Result is the output of a transform: re-encoded bytes and the content
// type they carry.
type Result struct {
	Data        []byte
	ContentType string
}

// Transformer converts uploaded image bytes into their optimized form.
// Implementations are stateless and safe for concurrent use.
type Transformer interface {
	Transform(data []byte, contentType string) (*Result, error)
}

// Config holds the transform parameters
type Config struct {
	// MaxDimension bounds the longer side of the output in pixels.
	// Images already within the bound are not enlarged.
	MaxDimension int
	// JPEGQuality is the encoder quality (1-100)
	JPEGQuality int
}

// DefaultConfig returns the standard optimization parameters
func DefaultConfig() *Config {
	return &Config{
		MaxDimension: DefaultMaxDimension,
		JPEGQuality:  DefaultJPEGQuality,
	}
}

// jpegTransformer decodes JPEG/PNG/WebP input, bounds the longer side
// while preserving aspect ratio, and re-encodes as JPEG.
type jpegTransformer struct {
	maxDimension int
	quality      int
}

// NewJPEG creates the full transformer
func NewJPEG(cfg *Config) Transformer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &jpegTransformer{
		maxDimension: cfg.MaxDimension,
		quality:      cfg.JPEGQuality,
	}
}

func (t *jpegTransformer) Transform(data []byte, contentType string) (*Result, error) {
	img, err := decode(data, contentType)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > t.maxDimension || height > t.maxDimension {
		// Passing 0 for the other side keeps the aspect ratio.
		var filter gift.Filter
		if width >= height {
			filter = gift.Resize(t.maxDimension, 0, gift.LanczosResampling)
		} else {
			filter = gift.Resize(0, t.maxDimension, gift.LanczosResampling)
		}

		g := gift.New(filter)
		dst := image.NewRGBA(g.Bounds(img.Bounds()))
		g.Draw(dst, img)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: t.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return &Result{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
	}, nil
}

func decode(data []byte, contentType string) (image.Image, error) {
	r := bytes.NewReader(data)

	switch contentType {
	case "image/jpeg", "image/jpg":
		img, err := jpeg.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode jpeg: %w", err)
		}
		return img, nil
	case "image/png":
		img, err := png.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode png: %w", err)
		}
		return img, nil
	case "image/webp":
		img, err := webp.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode webp: %w", err)
		}
		return img, nil
	default:
		img, _, err := image.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		return img, nil
	}
}

// passthroughTransformer returns the input unchanged. It is the
// degraded variant for deployments without transform capability.
type passthroughTransformer struct{}

// NewPassthrough creates the degraded transformer
func NewPassthrough() Transformer {
	return passthroughTransformer{}
}

func (passthroughTransformer) Transform(data []byte, contentType string) (*Result, error) {
	return &Result{
		Data:        data,
		ContentType: contentType,
	}, nil
}
