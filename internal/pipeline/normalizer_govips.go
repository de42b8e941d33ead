//go:build govips && cgo

package pipeline

import (
	"context"
	"fmt"

	"github.com/davidbyttow/govips/v2/vips"
)

type govipsNormalizer struct{}

func (govipsNormalizer) Normalize(ctx context.Context, input []byte) ([]byte, int, int, error) {
	select {
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	default:
	}

	img, err := vips.NewImageFromBuffer(input)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode rasterized image: %w", err)
	}
	defer img.Close()

	if img.HasAlpha() {
		if err := img.Flatten(&vips.Color{R: 255, G: 255, B: 255}); err != nil {
			return nil, 0, 0, fmt.Errorf("flatten alpha: %w", err)
		}
	}
	if img.Interpretation() != vips.InterpretationSRGB {
		if err := img.ToColorSpace(vips.InterpretationSRGB); err != nil {
			return nil, 0, 0, fmt.Errorf("convert to srgb: %w", err)
		}
	}

	params := vips.NewJpegExportParams()
	params.Quality = JPEGQuality
	data, _, err := img.ExportJpeg(params)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}

	return data, img.Width(), img.Height(), nil
}
