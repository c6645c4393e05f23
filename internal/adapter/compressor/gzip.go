package compressor

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

type GzipCompressor struct {
	level int
}

const (
	DefaultLevel = gzip.DefaultCompression
	MinLevel     = gzip.HuffmanOnly
	MaxLevel     = gzip.BestCompression
)

// NewGzipLevel returns a compressor writing at level, DefaultLevel or
// MinLevel..MaxLevel.
func NewGzipLevel(level int) *GzipCompressor {
	return &GzipCompressor{level: level}
}

// Compress wraps dst. The caller must Close the returned writer to flush the
// gzip trailer; closing does not close dst.
func (g *GzipCompressor) Compress(dst io.Writer) (io.WriteCloser, error) {
	gzipWriter, err := gzip.NewWriterLevel(dst, g.level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	return gzipWriter, nil
}

// Decompress wraps src. Closing the returned reader does not close src.
func (g *GzipCompressor) Decompress(src io.Reader) (io.ReadCloser, error) {
	gzipReader, err := gzip.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return gzipReader, nil
}
