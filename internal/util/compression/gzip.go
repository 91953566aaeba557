package compression

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// GzipCompressor encodes pages served straight from a bucket, which browsers
// decode from the Content-Encoding header.
type GzipCompressor struct{}

func (GzipCompressor) Compress(data []byte) ([]byte, error) {
	var b bytes.Buffer
	w, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (GzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (GzipCompressor) Encoding() string {
	return "gzip"
}
