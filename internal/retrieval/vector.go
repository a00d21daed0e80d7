package retrieval

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Embeddings are stored as little-endian float32 blobs.

func vectorBlob(v []float32) []byte {
	out := make([]byte, 0, 4*len(v))
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

// blobVector decodes b into dst, growing it only when needed.
func blobVector(dst []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes is not a float32 array", len(b))
	}
	n := len(b) / 4
	if cap(dst) >= n {
		dst = dst[:n]
	} else {
		dst = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i : 4*i+4]))
	}
	return dst, nil
}

func magnitude(v []float32) float64 {
	var ss float64
	for _, f := range v {
		ss += float64(f) * float64(f)
	}
	return math.Sqrt(ss)
}

// similarity is the cosine of q and v given q's precomputed magnitude.
// Mismatched dimensions and zero vectors score 0.
func similarity(q []float32, qMag float64, v []float32) float32 {
	if len(q) != len(v) || qMag == 0 {
		return 0
	}
	var dot, ss float64
	for i, f := range v {
		dot += float64(q[i]) * float64(f)
		ss += float64(f) * float64(f)
	}
	if ss == 0 {
		return 0
	}
	return float32(dot / (qMag * math.Sqrt(ss)))
}

type hit struct {
	id    string
	score float32
}

// better orders hits by score, then by ID so ties are stable.
func (h hit) better(o hit) bool {
	if h.score != o.score {
		return h.score > o.score
	}
	return h.id < o.id
}

// ranker keeps the best k hits seen so far, best first.
type ranker struct {
	k    int
	hits []hit
}

func newRanker(k int) *ranker {
	return &ranker{k: k, hits: make([]hit, 0, k)}
}

func (r *ranker) offer(h hit) {
	if len(r.hits) == r.k && !h.better(r.hits[r.k-1]) {
		return
	}
	i := sort.Search(len(r.hits), func(i int) bool { return h.better(r.hits[i]) })
	if len(r.hits) < r.k {
		r.hits = append(r.hits, hit{})
	}
	copy(r.hits[i+1:], r.hits[i:])
	r.hits[i] = h
}
