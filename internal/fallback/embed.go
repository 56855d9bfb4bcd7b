package fallback

import (
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Dimensions is the length of heuristic embedding vectors.
const Dimensions = 512

// Embed returns a hashed term-frequency vector, L2-normalized. Stop words
// are dropped; text without word tokens is embedded by character trigrams.
// Vectors are comparable with each other, not with remote embeddings.
func Embed(text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrFallbackExhausted
	}

	features := make([]string, 0, 64)
	for _, w := range words(text) {
		if !stopwords[w] {
			features = append(features, w)
		}
	}
	if len(features) == 0 {
		features = trigrams(text)
	}

	vec := make([]float64, Dimensions)
	for _, f := range features {
		vec[xxhash.Sum64String(f)%Dimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, Dimensions)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func trigrams(text string) []string {
	r := []rune(strings.Join(strings.Fields(strings.ToLower(text)), " "))
	if len(r) < 3 {
		return []string{string(r)}
	}
	out := make([]string, 0, len(r)-2)
	for i := 0; i+3 <= len(r); i++ {
		out = append(out, string(r[i:i+3]))
	}
	return out
}

// Cosine returns the cosine similarity of two vectors, or 0 when their
// lengths differ or either is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
