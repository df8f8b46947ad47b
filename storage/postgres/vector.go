package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/fraudlens/core"
)

const signBit = uint64(1) << 63

// encodeID maps an unsigned ID onto bigint preserving order.
func encodeID(id core.ID) int64 {
	return int64(uint64(id) ^ signBit)
}

func decodeID(v int64) core.ID {
	return core.ID(uint64(v) ^ signBit)
}

// formatVector renders a vector in pgvector's text format.
// A nil or empty vector renders as nil so it is stored as NULL.
func formatVector(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.Grow(len(v) * 10)
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// parseVector parses pgvector's text format.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVector, s)
	}
	body := s[1 : len(s)-1]
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidVector, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
