package index

import (
	"math"
	"testing"
)

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.1, -0.5, 3.25, 0}

	blob, err := EncodeVector(vec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(blob) != 4+len(vec)*4 {
		t.Fatalf("blob size = %d, want %d", len(blob), 4+len(vec)*4)
	}

	got, err := DecodeVector(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("decoded length = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Fatalf("value %d = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestEncodeVectorRejects(t *testing.T) {
	if _, err := EncodeVector(nil); err == nil {
		t.Fatal("expected error for empty vector")
	}
	if _, err := EncodeVector([]float32{1, float32(math.NaN())}); err == nil {
		t.Fatal("expected error for NaN value")
	}
	if _, err := EncodeVector([]float32{float32(math.Inf(1))}); err == nil {
		t.Fatal("expected error for infinite value")
	}
}

func TestDecodeVectorRejects(t *testing.T) {
	if _, err := DecodeVector(nil); err == nil {
		t.Fatal("expected error for nil blob")
	}
	if _, err := DecodeVector([]byte{1, 2}); err == nil {
		t.Fatal("expected error for short blob")
	}

	// Header claims 3 values but the payload carries only 2.
	blob, err := EncodeVector([]float32{1, 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	blob[0] = 3
	if _, err := DecodeVector(blob); err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
}

func TestCosineSimilarity(t *testing.T) {
	got, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	if err != nil {
		t.Fatalf("identical vectors: %v", err)
	}
	if math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors = %v, want 1", got)
	}

	got, err = CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if err != nil {
		t.Fatalf("orthogonal vectors: %v", err)
	}
	if math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors = %v, want 0", got)
	}

	if _, err := CosineSimilarity([]float32{1}, []float32{1, 2}); err == nil {
		t.Fatal("expected error for dimension mismatch")
	}
	if _, err := CosineSimilarity([]float32{0, 0}, []float32{1, 2}); err == nil {
		t.Fatal("expected error for zero vector")
	}
}
