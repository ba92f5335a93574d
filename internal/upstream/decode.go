package upstream

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decodeResidual decompresses a body the transport left encoded. The
// declared encoding must agree with the leading magic bytes; otherwise the
// body is returned unchanged.
func decodeResidual(encoding string, body []byte) []byte {
	encoding = strings.ToLower(strings.TrimSpace(encoding))
	if encoding == "" || encoding == "identity" || len(body) < 2 {
		return body
	}

	var (
		decoded []byte
		err     error
	)
	switch {
	case strings.Contains(encoding, "gzip") && bytes.HasPrefix(body, gzipMagic):
		decoded, err = readAllFrom(gzip.NewReader(bytes.NewReader(body)))
	case strings.Contains(encoding, "zstd") && bytes.HasPrefix(body, zstdMagic):
		decoded, err = decodeZstd(body)
	case strings.Contains(encoding, "deflate") && isZlibHeader(body):
		decoded, err = readAllFrom(zlib.NewReader(bytes.NewReader(body)))
	default:
		return body
	}
	if err != nil {
		return body
	}
	return decoded
}

func readAllFrom(r io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func decodeZstd(body []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeAll(body, nil)
}

func isZlibHeader(body []byte) bool {
	return body[0]&0x0f == 8 && (uint16(body[0])<<8|uint16(body[1]))%31 == 0
}
