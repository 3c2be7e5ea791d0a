package embedding

import (
	"math"
	"strings"
)

// Fallback derives a deterministic, L2-normalized vector of length dim from
// the characters of text. It is a stand-in for the remote model, good enough
// to keep retrieval working while the provider is down: word w contributes
// the code point of its i-th character to component i, weighted 1/(w+1).
func Fallback(text string, dim int) []float32 {
	if dim <= 0 {
		return nil
	}
	acc := make([]float64, dim)
	for w, word := range strings.Fields(strings.ToLower(text)) {
		weight := 1.0 / float64(w+1)
		i := 0
		for _, r := range word {
			if i >= dim {
				break
			}
			acc[i] += float64(r) * weight
			i++
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, dim)
	if norm == 0 {
		return out
	}
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}
