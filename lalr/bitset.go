package lalr

import "math/bits"

type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

// add sets bit i and reports whether it was previously clear.
func (s bitset) add(i int) bool {
	w, m := i/64, uint64(1)<<(i%64)
	if s[w]&m != 0 {
		return false
	}
	s[w] |= m
	return true
}

func (s bitset) has(i int) bool {
	return s[i/64]&(uint64(1)<<(i%64)) != 0
}

// union adds every bit of o to s and reports whether s changed.
func (s bitset) union(o bitset) bool {
	changed := false
	for i, w := range o {
		if n := s[i] | w; n != s[i] {
			s[i] = n
			changed = true
		}
	}
	return changed
}

func (s bitset) clone() bitset {
	return append(bitset(nil), s...)
}

func (s bitset) each(f func(int)) {
	for i, w := range s {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			f(i*64 + b)
			w &^= 1 << b
		}
	}
}
