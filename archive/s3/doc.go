// Package s3 implements archive.Store on Amazon S3.
//
// Objects are uploaded through the SDK's transfer manager, so large frames
// are split into concurrent multipart uploads, and carry a CRC32C checksum
// that S3 verifies on receipt.
//
//	store, err := s3.New(ctx, "my-bucket", s3.WithPrefix("appendbuf/"))
//	arc := archive.New(store, archive.WithCodec(archive.CodecZSTD))
package s3
