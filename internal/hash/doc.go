// Package hash provides the CRC32-Castagnoli checksums used by archive
// frames and object-store uploads.
//
// Go's crc32 package uses hardware instructions (SSE4.2, ARM CRC) for the
// Castagnoli polynomial when available.
//
//	sum := hash.CRC32C(data)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	sum = h.Sum32()
package hash
