package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

type stdlibNormalizer struct{}

func (stdlibNormalizer) Normalize(ctx context.Context, input []byte) ([]byte, int, int, error) {
	select {
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	default:
	}

	src, _, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode rasterized image: %w", err)
	}

	rgb := toOpaqueRGB(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}

	bounds := rgb.Bounds()
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

func toOpaqueRGB(src image.Image) *image.RGBA {
	srcBounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, srcBounds.Dx(), srcBounds.Dy()))

	if hasAlpha(src) {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.Draw(dst, dst.Bounds(), src, srcBounds.Min, draw.Over)
		return dst
	}

	draw.Draw(dst, dst.Bounds(), src, srcBounds.Min, draw.Src)
	return dst
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}
