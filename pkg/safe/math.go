package safe

import (
	"math"
)

// AddUint64 returns a+b and false if the sum overflows.
func AddUint64(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// MulUint64 returns a*b and false if the product overflows.
func MulUint64(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

// MulAddUint64 returns acc*mul+add, the step of a base-N digit accumulator.
// Overflow is reported, never wrapped.
func MulAddUint64(acc, mul, add uint64) (uint64, bool) {
	v, ok := MulUint64(acc, mul)
	if !ok {
		return 0, false
	}
	return AddUint64(v, add)
}
