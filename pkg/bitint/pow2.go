// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-2 helpers used to step Welch segment
lengths. All functions are O(1) and allocation free.

Usage:

	// Round a requested segment length up
	segment := bitint.NextPowerOfTwo(1000) // Returns 1024

	// Step down from the current segment length
	shorter := bitint.PrevPowerOfTwo(segment - 1) // Returns 512

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of 2 map to themselves: bits.Len(7) = 3 and 1<<3 = 8, whereas
bits.Len(8) = 4 would double the input.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size, and 1 for
// size <= 1.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size, and 0 for
// size <= 0.
//
//	Input  Output
//	8      8
//	7      4
//	1      1
//	0      0
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo checks if n is a power of 2. Powers of 2 have exactly one
// bit set, so n&(n-1) clears it to zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
