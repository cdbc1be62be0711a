package repository

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/verdict/internal/domain/types"
	"github.com/okian/verdict/pkg/metrics"
)

// Treap-based standings index, one per event.
//
// Ordering: rating DESC, then confidence DESC, then team id ASC. The BST
// comparator treats "less" as "ranks earlier", so an in-order traversal
// yields the standings from best to worst.

// ratingScale controls fixed-point scaling from float64. Elo deltas are
// fractions of the K-factor, so six decimal places is plenty.
const ratingScale = 1_000_000

type ratingFP int64

func toFixedPoint(x float64) ratingFP {
	switch {
	case math.IsNaN(x):
		return 0
	case math.IsInf(x, 1):
		return ratingFP(math.MaxInt64)
	case math.IsInf(x, -1):
		return ratingFP(math.MinInt64)
	}
	return ratingFP(math.Round(x * ratingScale))
}

func toFloat(x ratingFP) float64 {
	return float64(x) / ratingScale
}

// rankKey is the full ordering key for one team.
type rankKey struct {
	rating     ratingFP
	confidence int
	id         string
}

// less reports whether a ranks earlier than b.
func (a rankKey) less(b rankKey) bool {
	if a.rating != b.rating {
		return a.rating > b.rating
	}
	if a.confidence != b.confidence {
		return a.confidence > b.confidence
	}
	return a.id < b.id
}

// treap node
type node struct {
	key   rankKey
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// keyToPriority keeps higher-rated teams nearer the treap root.
func keyToPriority(k rankKey) uint64 {
	const offset = uint64(1) << 63 // shift negative ratings into positive range
	return uint64(k.rating) + offset
}

func insert(n *node, k rankKey) *node {
	if n == nil {
		return &node{key: k, prio: keyToPriority(k), size: 1}
	}
	if k.less(n.key) {
		n.left = insert(n.left, k)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, k)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, k rankKey) *node {
	if n == nil {
		return nil
	}
	switch {
	case k == n.key:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, k)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, k)
		}
	case k.less(n.key):
		n.left = deleteNode(n.left, k)
	default:
		n.right = deleteNode(n.right, k)
	}
	fix(n)
	return n
}

// collect appends entries in rank order until limit is reached.
func collect(n *node, limit int, out *[]types.StandingEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, types.StandingEntry{
			TeamID:     n.key.id,
			Rating:     toFloat(n.key.rating),
			Confidence: n.key.confidence,
		})
	}
	if len(*out) < limit {
		collect(n.right, limit, out)
	}
}

// standingsIndex holds one event's ranked teams with a lazily rebuilt
// read snapshot.
type standingsIndex struct {
	mu   sync.RWMutex
	root *node
	byID map[string]rankKey

	dirty    atomic.Bool
	snapshot atomic.Pointer[[]types.StandingEntry]
}

func newStandingsIndex() *standingsIndex {
	return &standingsIndex{byID: make(map[string]rankKey)}
}

// upsert replaces a team's ordering key.
func (s *standingsIndex) upsert(id string, ratingValue float64, confidence int) {
	k := rankKey{rating: toFixedPoint(ratingValue), confidence: confidence, id: id}

	s.mu.Lock()
	if old, ok := s.byID[id]; ok {
		s.root = deleteNode(s.root, old)
	}
	s.root = insert(s.root, k)
	s.byID[id] = k
	s.mu.Unlock()

	s.dirty.Store(true)
}

// topN returns up to limit entries with ranks assigned, serving from the
// cached snapshot when the index has not changed since the last rebuild.
func (s *standingsIndex) topN(limit int) []types.StandingEntry {
	if !s.dirty.Load() {
		if snap := s.snapshot.Load(); snap != nil {
			return head(*snap, limit)
		}
	}
	return head(s.rebuild(), limit)
}

// rebuild publishes a fresh full snapshot of the standings.
func (s *standingsIndex) rebuild() []types.StandingEntry {
	start := time.Now()

	// Clear the flag before reading the tree. An upsert that lands while
	// the snapshot is being collected re-marks the index dirty, so the next
	// read rebuilds instead of serving this possibly stale snapshot.
	s.dirty.Store(false)

	s.mu.RLock()
	out := make([]types.StandingEntry, 0, nsize(s.root))
	collect(s.root, nsize(s.root), &out)
	s.mu.RUnlock()

	for i := range out {
		out[i].Rank = i + 1
	}
	s.snapshot.Store(&out)

	ms := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordStandingsSnapshotDuration(ms)
	metrics.IncrementStandingsSnapshotCount()
	metrics.UpdateStandingsSnapshotLastUnix(float64(time.Now().Unix()))

	return out
}

func head(entries []types.StandingEntry, limit int) []types.StandingEntry {
	if limit < len(entries) {
		return entries[:limit]
	}
	return entries
}
