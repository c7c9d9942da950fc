package asciicast

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// NewCompressedWriter wraps w so that everything written is zstd-compressed.
// Close must be called to flush the final frame; it does not close w.
func NewCompressedWriter(w io.Writer) (io.WriteCloser, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("asciicast: create zstd encoder: %w", err)
	}
	return enc, nil
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("asciicast: create zstd decoder: %w", err)
	}
	return dec.IOReadCloser(), nil
}
