package js5

// Compression identifies the compression scheme of a container body.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionBzip2
	CompressionGzip
	CompressionLZMA
)

// String returns the human-readable name of the compression scheme.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionBzip2:
		return "bzip2"
	case CompressionGzip:
		return "gzip"
	case CompressionLZMA:
		return "lzma"
	default:
		return "unknown"
	}
}
