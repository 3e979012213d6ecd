package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects the compression applied to archived bytes.
type Codec uint8

const (
	// CodecNone stores bytes as is.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 block compression (fast, good for hot data).
	CodecLZ4 Codec = 1
	// CodecZSTD uses ZSTD (better ratio, good for cold data).
	CodecZSTD Codec = 2
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// minSavings is the compressed/raw ratio above which a frame is stored
// uncompressed instead.
const minSavings = 0.9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// compress encodes raw with c and returns the payload together with the
// codec actually used. Data that does not shrink is stored with CodecNone.
func compress(c Codec, raw []byte) ([]byte, Codec, error) {
	if c == CodecNone || len(raw) == 0 {
		return raw, CodecNone, nil
	}

	var (
		out []byte
		err error
	)
	switch c {
	case CodecLZ4:
		out, err = compressLZ4(raw)
	case CodecZSTD:
		out, err = compressZSTD(raw)
	default:
		return nil, c, fmt.Errorf("%w: %s", ErrUnknownCodec, c)
	}
	if err != nil {
		return nil, c, err
	}

	if len(out) == 0 || float64(len(out)) > float64(len(raw))*minSavings {
		return raw, CodecNone, nil
	}
	return out, c, nil
}

func compressLZ4(raw []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(raw)))

	n, err := lz4.CompressBlock(raw, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return dst[:n], nil
}

func compressZSTD(raw []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer putZstdEncoder(enc)

	return enc.EncodeAll(raw, nil), nil
}

// decompress decodes payload into a slice of exactly rawLen bytes.
func decompress(c Codec, payload []byte, rawLen int) ([]byte, error) {
	switch c {
	case CodecNone:
		if len(payload) != rawLen {
			return nil, fmt.Errorf("%w: stored length %d, want %d", ErrCorrupt, len(payload), rawLen)
		}
		return payload, nil

	case CodecLZ4:
		dst := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return dst, nil

	case CodecZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer putZstdDecoder(dec)

		// Stream into a rawLen buffer so a payload that expands past the
		// header's size is caught after at most one extra byte.
		if err := dec.Reset(bytes.NewReader(payload)); err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		out := make([]byte, rawLen)
		if _, err := io.ReadFull(dec, out); err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		var extra [1]byte
		n, err := dec.Read(extra[:])
		if n > 0 {
			return nil, fmt.Errorf("%w: decompressed size exceeds %d", ErrCorrupt, rawLen)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, c)
	}
}
