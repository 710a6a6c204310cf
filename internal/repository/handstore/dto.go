package handstore

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sidepot-cloud/handex/internal/domain/chunk"
)

// Redis key layout. All keys share the handex: prefix so a shared instance
// can be swept with a single SCAN pattern.
const (
	idsKey = "handex:hands"

	recordKeyFmt   = "handex:hand:%s"
	embKeyFmt      = "handex:emb:%s:%s:%s"
	embTypesKeyFmt = "handex:embtypes:%s:%s"
)

func recordKey(id string) string {
	return fmt.Sprintf(recordKeyFmt, id)
}

func embKey(id string, strategy chunk.Strategy, t chunk.Type) string {
	return fmt.Sprintf(embKeyFmt, id, strategy, t)
}

func embTypesKey(id string, strategy chunk.Strategy) string {
	return fmt.Sprintf(embTypesKeyFmt, id, strategy)
}

// encodeVector packs a float32 vector as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks little-endian bytes into a float32 vector.
func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}
