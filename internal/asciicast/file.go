package asciicast

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// WriteFile writes rec to path. A ".zst" suffix selects zstd compression.
// Without overwrite an existing file is left untouched and an error returned.
// A write that fails part way removes the partial file.
func WriteFile(path string, rec *Recording, overwrite bool) (err error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output file %q already exists (use --overwrite to replace it): %w", path, err)
		}
		return fmt.Errorf("open output file %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file %q: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	var dst io.Writer = f
	var zw io.WriteCloser
	if strings.HasSuffix(path, ".zst") {
		zw, err = NewCompressedWriter(f)
		if err != nil {
			return err
		}
		dst = zw
	}
	if _, err := rec.WriteTo(dst); err != nil {
		return fmt.Errorf("write recording %q: %w", path, err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("finish compressed recording %q: %w", path, err)
		}
	}
	return nil
}

// ReadFile reads a plain or zstd-compressed recording from path.
func ReadFile(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording %q: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
