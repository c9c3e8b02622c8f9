package spatial

// PairKey builds an order-free key for an entity pair by packing the
// smaller id into the high half: PairKey(a, b) == PairKey(b, a).
//
// The key is 64 bits wide so each id keeps its full 32-bit range.
// Narrower packings alias distinct pairs as soon as ids outgrow the
// shift; see the aliasing regression test.
func PairKey(a, b EntityID) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// PairSet tracks which pairs were already examined. The broad phase
// clears it at the start of every tick; the crowd resolver clears it
// at the start of every pass.
type PairSet struct {
	seen map[uint64]struct{}
}

// NewPairSet returns an empty set sized for a typical tick.
func NewPairSet() *PairSet {
	return &PairSet{seen: make(map[uint64]struct{}, 256)}
}

// Visit marks the pair as seen and reports whether it was new.
func (s *PairSet) Visit(a, b EntityID) bool {
	k := PairKey(a, b)
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Seen reports whether the pair was already visited.
func (s *PairSet) Seen(a, b EntityID) bool {
	_, ok := s.seen[PairKey(a, b)]
	return ok
}

// Clear empties the set, keeping its capacity.
func (s *PairSet) Clear() {
	clear(s.seen)
}

// Len returns the number of visited pairs.
func (s *PairSet) Len() int {
	return len(s.seen)
}
