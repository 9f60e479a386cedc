package rag

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// VectorSize is the dimension of the hashed bag-of-tokens embedding.
const VectorSize = 256

var tokenRE = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]+`)

// Tokenize returns the lowercased identifier-like tokens of text.
func Tokenize(text string) []string {
	tokens := tokenRE.FindAllString(text, -1)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}

// Embed hashes each token into a fixed-size count vector and L2-normalizes it.
// Text with no tokens maps to the zero vector.
func Embed(text string) []float32 {
	counts := make([]float64, VectorSize)
	for _, tok := range Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		counts[h.Sum32()%VectorSize]++
	}

	var sum float64
	for _, c := range counts {
		sum += c * c
	}
	vec := make([]float32, VectorSize)
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i, c := range counts {
		vec[i] = float32(c / norm)
	}
	return vec
}

// IsZero reports whether v has no non-zero component.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// EmbeddingFunc adapts Embed to the vector store's embedding callback.
func EmbeddingFunc(_ context.Context, text string) ([]float32, error) {
	return Embed(text), nil
}
