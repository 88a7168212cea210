package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// jpegQuality is used when re-encoding jpeg derivatives
const jpegQuality = 85

// DefaultMaxPixels bounds the decoded size of an original (40 megapixels).
const DefaultMaxPixels = 40_000_000

// Source is a decoded original ready to be scaled to any number of widths.
type Source struct {
	img    image.Image
	format string
}

// Decode reads the header of data first and refuses images whose declared
// width times height exceeds maxPixels, so the pixel buffer is never
// allocated for them. A maxPixels of zero or less disables the check.
// Undecodable or oversized input yields a permanent error.
func Decode(data []byte, maxPixels int) (*Source, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode image header: %w", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, Permanent(fmt.Errorf("empty image"))
	}
	if maxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, Permanent(fmt.Errorf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPixels))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode image: %w", err))
	}
	return &Source{img: img, format: format}, nil
}

// Scale renders the source width pixels wide, keeping its aspect ratio.
// jpeg stays jpeg; png and gif become png. Safe for concurrent use.
func (s *Source) Scale(width int) ([]byte, error) {
	if width <= 0 {
		return nil, Permanent(fmt.Errorf("invalid width %d", width))
	}

	bounds := s.img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, Permanent(fmt.Errorf("empty image"))
	}
	height := (bounds.Dy()*width + bounds.Dx()/2) / bounds.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), s.img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	var err error
	switch s.format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s thumbnail: %w", s.format, err)
	}
	return buf.Bytes(), nil
}

// Resize decodes data within DefaultMaxPixels and scales it to width.
func Resize(data []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, Permanent(fmt.Errorf("invalid width %d", width))
	}
	src, err := Decode(data, DefaultMaxPixels)
	if err != nil {
		return nil, err
	}
	return src.Scale(width)
}
