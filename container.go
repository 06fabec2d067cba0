package js5

import (
	"bytes"
	"compress/bzip2"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz/lzma"
)

// Container is a decoded JS5 container.
type Container struct {
	// Compression is the scheme declared by the container's tag byte.
	Compression Compression

	// Data is the decompressed payload.
	Data []byte

	// Version is the trailing 16-bit group version, or -1 when the
	// container carries no version trailer.
	Version int
}

const (
	// containerHeaderSize covers the tag byte and the compressed length.
	containerHeaderSize = 5

	// lzmaPropsSize is the portion of the classic .lzma header that is
	// actually stored in the cache; the 8-byte unpacked-size field is not.
	lzmaPropsSize = 5

	// maxDecodedLen bounds the declared decompressed length so a corrupt
	// header cannot drive a huge allocation.
	maxDecodedLen = 1 << 30
)

var bzip2Magic = []byte("BZh")

// DecodeContainer parses and decompresses a JS5 container.
//
// Byte 0 is the compression tag, bytes 1..4 the big-endian compressed body
// length. Compressed containers declare their decompressed length in the
// next 4 bytes; the actual decompressed size must match it exactly. Up to
// two bytes may trail the body, holding the group version.
//
// DecodeContainer does not modify raw and never aliases it in the result;
// decoding the same bytes twice yields identical payloads.
func DecodeContainer(raw []byte) (*Container, error) {
	if len(raw) < containerHeaderSize {
		return nil, fmt.Errorf("%w: %d byte container", ErrCorruptHeader, len(raw))
	}
	tag := Compression(raw[0])
	compLen := int(binary.BigEndian.Uint32(raw[1:containerHeaderSize]))
	body := raw[containerHeaderSize:]

	if tag == CompressionNone {
		if len(body) < compLen {
			return nil, fmt.Errorf("%w: body is %d bytes, header declares %d", ErrCorruptHeader, len(body), compLen)
		}
		return &Container{
			Compression: tag,
			Data:        bytes.Clone(body[:compLen]),
			Version:     trailingVersion(body[compLen:]),
		}, nil
	}

	switch tag {
	case CompressionBzip2, CompressionGzip, CompressionLZMA:
	default:
		return nil, fmt.Errorf("%w: unknown compression tag %d", ErrCorruptHeader, raw[0])
	}

	if len(body) < 4 {
		return nil, fmt.Errorf("%w: missing decompressed length", ErrCorruptHeader)
	}
	wantLen := int(binary.BigEndian.Uint32(body[:4]))
	body = body[4:]
	if wantLen > maxDecodedLen {
		return nil, fmt.Errorf("%w: declared decompressed length %d", ErrGroupTooLarge, wantLen)
	}
	if len(body) < compLen {
		return nil, fmt.Errorf("%w: body is %d bytes, header declares %d", ErrCorruptHeader, len(body), compLen)
	}

	data, err := decompress(tag, body[:compLen])
	if err != nil {
		return nil, err
	}
	if len(data) != wantLen {
		return nil, fmt.Errorf("%w: got %d bytes, header declares %d", ErrDecompression, len(data), wantLen)
	}

	return &Container{
		Compression: tag,
		Data:        data,
		Version:     trailingVersion(body[compLen:]),
	}, nil
}

// trailingVersion reads the optional 2-byte group version after the body.
func trailingVersion(rest []byte) int {
	if len(rest) < 2 {
		return -1
	}
	return int(binary.BigEndian.Uint16(rest))
}

func decompress(tag Compression, payload []byte) ([]byte, error) {
	switch tag {
	case CompressionBzip2:
		return decompressBzip2(payload)
	case CompressionGzip:
		return decompressGzip(payload)
	case CompressionLZMA:
		return decompressLZMA(payload)
	default:
		return nil, fmt.Errorf("%w: unknown compression tag %d", ErrCorruptHeader, uint8(tag))
	}
}

// decompressBzip2 inflates a cache bzip2 stream. The cache strips the
// four-byte "BZh1" magic from stored streams, so it is re-inserted before
// handing the bytes to the decompressor.
func decompressBzip2(payload []byte) ([]byte, error) {
	stream := payload
	if !bytes.HasPrefix(stream, bzip2Magic) {
		restored := make([]byte, 0, len(payload)+4)
		restored = append(restored, 'B', 'Z', 'h', '1')
		stream = append(restored, payload...)
	}
	data, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(stream)))
	if err != nil {
		return nil, fmt.Errorf("%w: bzip2: %v", ErrDecompression, err)
	}
	return data, nil
}

func decompressGzip(payload []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrDecompression, err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrDecompression, err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrDecompression, err)
	}
	return data, nil
}

// decompressLZMA inflates a cache lzma stream. The cache stores only the
// five property bytes of the classic .lzma header; the unpacked-size field
// is synthesized as unknown so the decoder runs to the end-of-stream marker.
func decompressLZMA(payload []byte) ([]byte, error) {
	if len(payload) < lzmaPropsSize {
		return nil, fmt.Errorf("%w: lzma: %d byte stream", ErrDecompression, len(payload))
	}
	hdr := make([]byte, 0, len(payload)+8)
	hdr = append(hdr, payload[:lzmaPropsSize]...)
	hdr = append(hdr, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	hdr = append(hdr, payload[lzmaPropsSize:]...)

	r, err := lzma.NewReader(bytes.NewReader(hdr))
	if err != nil {
		return nil, fmt.Errorf("%w: lzma: %v", ErrDecompression, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: lzma: %v", ErrDecompression, err)
	}
	return data, nil
}
