package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/appendbuf/internal/conv"
	"github.com/hupe1980/appendbuf/internal/hash"
)

const (
	frameMagic   = "ABUF"
	frameVersion = 1

	// frameHeaderSize is magic(4) + version(1) + codec(1) + reserved(2) +
	// rawLen(4) + payloadLen(4) + crc(4).
	frameHeaderSize = 20
)

// frameHeader is the fixed-size prefix of every archived object.
type frameHeader struct {
	Codec      Codec
	RawLen     uint32
	PayloadLen uint32
	Checksum   uint32
}

// encodeFrame compresses raw with c and returns the complete frame.
func encodeFrame(c Codec, raw []byte) ([]byte, Codec, error) {
	rawLen, err := conv.IntToUint32(len(raw))
	if err != nil {
		return nil, c, fmt.Errorf("%w: %w", ErrTooLarge, err)
	}

	payload, used, err := compress(c, raw)
	if err != nil {
		return nil, c, err
	}
	payloadLen, err := conv.IntToUint32(len(payload))
	if err != nil {
		return nil, c, fmt.Errorf("%w: %w", ErrTooLarge, err)
	}

	out := make([]byte, frameHeaderSize+len(payload))
	copy(out[0:4], frameMagic)
	out[4] = frameVersion
	out[5] = byte(used)
	// out[6:8] reserved, zero
	binary.LittleEndian.PutUint32(out[8:], rawLen)
	binary.LittleEndian.PutUint32(out[12:], payloadLen)
	binary.LittleEndian.PutUint32(out[16:], hash.CRC32C(raw))
	copy(out[frameHeaderSize:], payload)
	return out, used, nil
}

func parseFrameHeader(data []byte) (frameHeader, error) {
	if len(data) < frameHeaderSize {
		return frameHeader{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(data))
	}
	if !bytes.Equal(data[0:4], []byte(frameMagic)) {
		return frameHeader{}, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[0:4])
	}
	if data[4] != frameVersion {
		return frameHeader{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, data[4])
	}

	h := frameHeader{
		Codec:      Codec(data[5]),
		RawLen:     binary.LittleEndian.Uint32(data[8:]),
		PayloadLen: binary.LittleEndian.Uint32(data[12:]),
		Checksum:   binary.LittleEndian.Uint32(data[16:]),
	}
	if uint64(len(data)-frameHeaderSize) != uint64(h.PayloadLen) {
		return frameHeader{}, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrCorrupt, len(data)-frameHeaderSize, h.PayloadLen)
	}
	return h, nil
}

// decodeFrame validates data and returns the original bytes. Frames whose
// decoded size exceeds limit are rejected with ErrTooLarge before any
// decompression; a negative limit disables the check.
func decodeFrame(data []byte, limit int) ([]byte, error) {
	h, err := parseFrameHeader(data)
	if err != nil {
		return nil, err
	}

	rawLen, err := conv.Uint32ToInt(h.RawLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTooLarge, err)
	}
	if limit >= 0 && rawLen > limit {
		return nil, fmt.Errorf("%w: %d bytes do not fit in %d", ErrTooLarge, rawLen, limit)
	}
	raw, err := decompress(h.Codec, data[frameHeaderSize:], rawLen)
	if err != nil {
		return nil, err
	}
	if sum := hash.CRC32C(raw); sum != h.Checksum {
		return nil, fmt.Errorf("%w: checksum %08x, want %08x", ErrCorrupt, sum, h.Checksum)
	}
	return raw, nil
}
