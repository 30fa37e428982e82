package vclock

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidIdentity    = errors.New("vclock: process id out of range")
	ErrIncompatibleLength = errors.New("vclock: clocks have different lengths")
)

// Clock is a vector clock indexed by process identity.
// A Clock value is not safe for concurrent mutation; use Manager for that.
type Clock []int64

// Copy creates a deep copy of the clock.
func (c Clock) Copy() Clock {
	if c == nil {
		return nil
	}
	out := make(Clock, len(c))
	copy(out, c)
	return out
}

// Grow returns a copy of c holding at least n slots. New slots are zero.
func (c Clock) Grow(n int) Clock {
	size := len(c)
	if n > size {
		size = n
	}
	out := make(Clock, size)
	copy(out, c)
	return out
}

// Get returns the counter in slot i, or 0 if the clock does not track it.
func (c Clock) Get(i int) int64 {
	if i < 0 || i >= len(c) {
		return 0
	}
	return c[i]
}

// Equal reports whether both clocks have the same length and counters.
func (c Clock) Equal(other Clock) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// String returns a string representation of the clock, e.g. "[1 0 3]".
func (c Clock) String() string {
	parts := make([]string, len(c))
	for i, v := range c {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Merge returns the element-wise maximum of a and b. The result is as long
// as the longer input; neither input is modified.
func Merge(a, b Clock) Clock {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := a.Grow(n)
	mergeInto(out, b)
	return out
}

// mergeInto takes the max of dst and src over their overlapping prefix.
func mergeInto(dst, src Clock) {
	for i := 0; i < len(dst) && i < len(src); i++ {
		if src[i] > dst[i] {
			dst[i] = src[i]
		}
	}
}

// CompareResult represents the result of comparing two vector clocks.
type CompareResult int

const (
	// Before indicates this clock happened before the other.
	Before CompareResult = iota
	// After indicates this clock happened after the other.
	After
	// Concurrent indicates the clocks are concurrent (no causal relationship).
	Concurrent
	// Equal indicates the clocks are equal.
	Equal
)

func (r CompareResult) String() string {
	switch r {
	case Before:
		return "before"
	case After:
		return "after"
	case Concurrent:
		return "concurrent"
	case Equal:
		return "equal"
	default:
		return "unknown"
	}
}

// Compare compares two clocks of possibly different lengths. Missing slots
// count as zero, so [1] and [1 0] compare Equal.
func Compare(a, b Clock) CompareResult {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	var less, greater bool
	for i := 0; i < n; i++ {
		av, bv := a.Get(i), b.Get(i)
		if av < bv {
			less = true
		} else if av > bv {
			greater = true
		}
	}

	switch {
	case !less && !greater:
		return Equal
	case less && !greater:
		return Before
	case greater && !less:
		return After
	default:
		return Concurrent
	}
}

// HappenedBefore reports whether a <= b component-wise and a != b.
// Lengths must match: reconcile them with Merge or Grow before comparing.
func HappenedBefore(a, b Clock) (bool, error) {
	if len(a) != len(b) {
		return false, fmt.Errorf("%w: %d != %d", ErrIncompatibleLength, len(a), len(b))
	}
	return Compare(a, b) == Before, nil
}
