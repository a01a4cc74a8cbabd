package index

import (
	"encoding/binary"
	"fmt"
	"math"
)

const blobHeaderSize = 4

// EncodeVector serializes a float32 vector as a binary blob:
// a 4-byte little-endian dimension header followed by the values.
func EncodeVector(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("encode vector: empty vector")
	}

	blob := make([]byte, blobHeaderSize+len(vec)*4)
	binary.LittleEndian.PutUint32(blob, uint32(len(vec)))
	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("encode vector: non-finite value at index %d", i)
		}
		binary.LittleEndian.PutUint32(blob[blobHeaderSize+i*4:], math.Float32bits(v))
	}
	return blob, nil
}

// DecodeVector parses a blob produced by EncodeVector.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob) < blobHeaderSize {
		return nil, fmt.Errorf("decode vector: blob too short: %d bytes", len(blob))
	}
	dim := int(binary.LittleEndian.Uint32(blob))
	if dim <= 0 {
		return nil, fmt.Errorf("decode vector: invalid dimension %d", dim)
	}
	if len(blob) != blobHeaderSize+dim*4 {
		return nil, fmt.Errorf("decode vector: dimension %d does not match payload of %d bytes", dim, len(blob)-blobHeaderSize)
	}

	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[blobHeaderSize+i*4:]))
	}
	return vec, nil
}

// CosineSimilarity returns the cosine of the angle between a and b in [-1, 1].
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("cosine similarity: empty vector")
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine similarity: dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("cosine similarity: zero vector")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
