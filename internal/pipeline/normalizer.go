package pipeline

import "context"

type Normalizer interface {
	Normalize(ctx context.Context, input []byte) (data []byte, width, height int, err error)
}
