package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// DefaultCompressThreshold is the payload size at which Compressed starts
// gzipping. Small payloads gain nothing and pay the header cost.
const DefaultCompressThreshold = 2048

// Compressed wraps another codec with a transparent gzip envelope. Encoded
// payloads at or above Threshold are compressed at BestCompression; smaller
// payloads are stored as the inner codec produced them.
//
// Decode always attempts decompression first and tolerates failure as "not
// compressed". That makes mixed data (written with and without the wrapper)
// readable, but it also means a payload whose leading bytes happen to look
// like a gzip stream would be mangled silently unless the inner codec
// detects the corruption. Do not toggle the wrapper on a live keyspace
// unless the inner codec validates its input (the structured codecs here
// all do).
type Compressed[V any] struct {
	// Inner is the underlying codec being wrapped. It must be set.
	Inner Codec[V]
	// Threshold in bytes; <= 0 uses DefaultCompressThreshold.
	Threshold int
}

func (c Compressed[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	thr := c.Threshold
	if thr <= 0 {
		thr = DefaultCompressThreshold
	}
	if len(b) < thr {
		return b, nil
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Compressed[V]) Decode(b []byte) (V, error) {
	if zr, err := gzip.NewReader(bytes.NewReader(b)); err == nil {
		raw, rerr := io.ReadAll(zr)
		_ = zr.Close()
		if rerr == nil {
			b = raw
		}
	}
	return c.Inner.Decode(b)
}
