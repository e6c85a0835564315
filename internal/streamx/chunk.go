package streamx

import (
	"fmt"

	"github.com/ooni/streamtls/internal/model"
)

// decodeChunk returns the bytes of a chunk. We always return a copy, so the
// host is free to reuse its buffer. Chunks that are neither a string nor a
// []byte cause an error wrapping [model.ErrInvalidPayload].
func decodeChunk(chunk model.Chunk) ([]byte, error) {
	switch v := chunk.(type) {
	case []byte:
		return append([]byte{}, v...), nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("%w: unexpected chunk type %T", model.ErrInvalidPayload, chunk)
	}
}
