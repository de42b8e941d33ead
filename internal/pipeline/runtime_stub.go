//go:build !govips || !cgo

package pipeline

func Startup() error {
	return nil
}

func Shutdown() {}

func Backend() string {
	return "stdlib"
}

func newNormalizer() (Normalizer, error) {
	return stdlibNormalizer{}, nil
}
