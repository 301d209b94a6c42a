package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is the algorithm applied to the serialized payload.
type Compression byte

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionSnappy
	CompressionLZ4
	CompressionBrotli
)

var compressionNames = map[Compression]string{ //nolint:gochecknoglobals
	CompressionNone:   "none",
	CompressionGzip:   "gzip",
	CompressionZstd:   "zstd",
	CompressionSnappy: "snappy",
	CompressionLZ4:    "lz4",
	CompressionBrotli: "brotli",
}

// ParseCompression parses a compression name (case insensitive). Empty means none.
func ParseCompression(name string) (Compression, error) {
	name = strings.ToLower(name)
	if name == "" {
		return CompressionNone, nil
	}

	for c, n := range compressionNames {
		if n == name {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
}

func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}

	return fmt.Sprintf("compression(%d)", byte(c))
}

func (c Compression) valid() bool {
	_, ok := compressionNames[c]

	return ok
}

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll.
var (
	zstdOnce    sync.Once //nolint:gochecknoglobals
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	errZstd     error
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, errZstd = zstd.NewWriter(nil)
		if errZstd != nil {
			return
		}

		zstdDecoder, errZstd = zstd.NewReader(nil)
	})

	return zstdEncoder, zstdDecoder, errZstd
}

func (c Compression) compress(data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		enc, _, err := zstdCodecs()
		if err != nil {
			return nil, err
		}

		return enc.EncodeAll(data, nil), nil
	case CompressionGzip:
		return compressStream(data, func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		})
	case CompressionSnappy:
		return compressStream(data, func(w io.Writer) (io.WriteCloser, error) {
			return snappy.NewBufferedWriter(w), nil
		})
	case CompressionLZ4:
		return compressStream(data, func(w io.Writer) (io.WriteCloser, error) {
			return lz4.NewWriter(w), nil
		})
	case CompressionBrotli:
		return compressStream(data, func(w io.Writer) (io.WriteCloser, error) {
			return brotli.NewWriter(w), nil
		})
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, byte(c))
	}
}

func (c Compression) decompress(data []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		_, dec, err := zstdCodecs()
		if err != nil {
			return nil, err
		}

		return dec.DecodeAll(data, nil)
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}

		defer r.Close() //nolint:errcheck

		return io.ReadAll(r)
	case CompressionSnappy:
		return io.ReadAll(snappy.NewReader(bytes.NewReader(data)))
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	case CompressionBrotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, byte(c))
	}
}

func compressStream(data []byte, open func(w io.Writer) (io.WriteCloser, error)) ([]byte, error) {
	var buf bytes.Buffer

	w, err := open(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()

		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
