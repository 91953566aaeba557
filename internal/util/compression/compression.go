// Package compression holds the codecs used for stored project bodies and exported pages.
package compression

// Compressor is implemented by every codec in this package.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	// Encoding is the HTTP Content-Encoding token of the codec's output.
	Encoding() string
}

var (
	_ Compressor = ZstdCompressor{}
	_ Compressor = GzipCompressor{}
)
