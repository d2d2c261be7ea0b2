package rag

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const (
	ModelNameHash   = "hash"
	defaultHashDims = 256
)

// HashModel is an offline feature-hashing encoder: every lowercased word
// and word bigram lands in a signed bucket, the vector is L2-normalized.
// Texts sharing vocabulary end up close under cosine similarity.
type HashModel struct {
	dims int
}

func NewHashModel(dims int) *HashModel {
	if dims <= 0 {
		dims = defaultHashDims
	}
	return &HashModel{dims: dims}
}

func (m *HashModel) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	return m.encode(ctx, text)
}

func (m *HashModel) EncodePassage(ctx context.Context, text string) ([]float32, error) {
	return m.encode(ctx, text)
}

func (m *HashModel) Dims() int {
	return m.dims
}

func (m *HashModel) Shutdown() error {
	return nil
}

func (m *HashModel) encode(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, m.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for i, w := range words {
		m.add(vec, w, 1)
		if i > 0 {
			m.add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	if !normalize(vec) {
		// no features; any unit vector keeps cosine distance defined
		vec[0] = 1
	}
	return vec, nil
}

func (m *HashModel) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(m.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func normalize(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return false
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return true
}
