package orderedset // import "github.com/openprofiling/jvm-profiler/otlp/internal/orderedset"

// OrderedSet assigns dense indices to values in insertion order. It backs the
// dictionary tables of the OTLP profile encoding, where every table is a
// slice indexed by previously handed out positions.
type OrderedSet[T comparable] map[T]int32

// Add returns the index of key, inserting it if needed.
func (os OrderedSet[T]) Add(key T) int32 {
	idx, _ := os.AddWithCheck(key)
	return idx
}

// AddWithCheck returns the index of key and whether it was already present.
func (os OrderedSet[T]) AddWithCheck(key T) (int32, bool) {
	if idx, exists := os[key]; exists {
		return idx, true
	}

	idx := int32(len(os))
	os[key] = idx
	return idx, false
}

// ToSlice returns the elements in insertion order.
func (os OrderedSet[T]) ToSlice() []T {
	ret := make([]T, len(os))
	for key, idx := range os {
		ret[idx] = key
	}

	return ret
}
