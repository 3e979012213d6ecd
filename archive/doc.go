// Package archive ships sealed appendbuf views to object storage and
// restores them into fresh buffers.
//
// A Slice is immutable once taken, so it can be encoded and uploaded while
// the writer keeps appending to its Buffer. Each archived object is a single
// self-describing frame:
//
//	magic "ABUF" | version u8 | codec u8 | reserved u16 |
//	rawLen u32 | payloadLen u32 | crc32c(raw) u32 | payload
//
// All integers are little-endian. The checksum covers the decoded bytes, so
// corruption in either the payload or the codec is detected on restore.
//
// # Stores
//
//   - MemoryStore: in-process map, for tests
//   - LocalStore: one file per object under a root directory
//   - archive/s3: Amazon S3 via aws-sdk-go-v2
//   - archive/minio: MinIO and other S3-compatible services
//
// NewCachingStore wraps any of them with an in-memory LRU of recently read
// frames, invalidated on Put and Delete.
//
// # Usage
//
//	arc := archive.New(archive.NewLocalStore(dir), archive.WithCodec(archive.CodecZSTD))
//	if err := arc.Put(ctx, "segment-0001", view); err != nil {
//		return err
//	}
//	buf, err := arc.Restore(ctx, "segment-0001", pool)
package archive
