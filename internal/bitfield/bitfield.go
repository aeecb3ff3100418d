// Package bitfield extracts and inserts bit ranges in little-endian words.
package bitfield

// Word is any unsigned integer a record field can live in.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Mask returns a value with bits hi..lo set.
func Mask[T Word](hi, lo uint) T {
	return T((uint64(1)<<(hi-lo+1) - 1) << lo)
}

// Get returns bits hi..lo of v, shifted down to bit 0.
func Get[T Word](v T, hi, lo uint) T {
	return (v >> lo) & Mask[T](hi-lo, 0)
}

// Bit reports whether bit n of v is set.
func Bit[T Word](v T, n uint) bool {
	return v>>n&1 != 0
}

// Put returns v with bits hi..lo replaced by x. Bits of x beyond the field
// width are discarded.
func Put[T Word](v T, hi, lo uint, x T) T {
	m := Mask[T](hi, lo)
	return v&^m | (x<<lo)&m
}

// Set returns v with bit n set to b.
func Set[T Word](v T, n uint, b bool) T {
	if b {
		return v | T(1)<<n
	}
	return v &^ (T(1) << n)
}
