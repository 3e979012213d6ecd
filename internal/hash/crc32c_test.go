package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Check value from RFC 3720, B.4: 32 bytes of zeros.
	assert.Equal(t, uint32(0x8a9136aa), CRC32C(make([]byte, 32)))
	assert.Equal(t, uint32(0), CRC32C(nil))
}

func TestNewCRC32CStreaming(t *testing.T) {
	data := []byte("append only buffers")

	h := NewCRC32C()
	_, _ = h.Write(data[:7])
	_, _ = h.Write(data[7:])

	assert.Equal(t, CRC32C(data), h.Sum32())
}

func TestCRC32CBase64(t *testing.T) {
	assert.Equal(t, "ipE2qg==", CRC32CBase64(make([]byte, 32)))
}
