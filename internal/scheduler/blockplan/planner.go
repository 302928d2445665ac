// Package blockplan implements the BlockPlanner component (§4.6): a pure
// decomposition of a weekly-hours count into an ordered list of block
// sizes, respecting the must-block property of the 2-hour case.
package blockplan

// Rules is the configurable block-composition table (§4.6.1 expansion).
// A zero value (nil Table) sends every hours count through the
// fall-through rule below, which yields the same blocks as the canonical
// table; DefaultRules() returns that table explicitly.
type Rules struct {
	// Table maps an hours count to its canonical block decomposition.
	// Hours not present fall through to the >=8 rule: []2 repeated
	// floor(h/2) times, plus a trailing [1] if h is odd.
	Table map[int][]int
}

// DefaultRules returns the canonical §4.6 table.
func DefaultRules() Rules {
	return Rules{Table: map[int][]int{
		1: {1},
		2: {2},
		3: {2, 1},
		4: {2, 2},
		5: {2, 2, 1},
		6: {2, 2, 2},
		7: {2, 2, 2, 1},
	}}
}

// Planner decomposes required weekly hours into block sizes.
type Planner struct {
	rules Rules
}

// New returns a Planner using rules. Pass DefaultRules() for the
// canonical §4.6 behavior.
func New(rules Rules) *Planner {
	return &Planner{rules: rules}
}

// Default returns a Planner using the canonical §4.6 table.
func Default() *Planner {
	return New(DefaultRules())
}

// Plan returns the ordered block sizes for hours. The sizes always sum
// to hours (P9). hours <= 0 returns nil.
func (p *Planner) Plan(hours int) []int {
	if hours <= 0 {
		return nil
	}
	if blocks, ok := p.rules.Table[hours]; ok {
		out := make([]int, len(blocks))
		copy(out, blocks)
		return out
	}
	pairs := hours / 2
	blocks := make([]int, 0, pairs+1)
	for i := 0; i < pairs; i++ {
		blocks = append(blocks, 2)
	}
	if hours%2 == 1 {
		blocks = append(blocks, 1)
	}
	return blocks
}

// MustBlock reports whether hours must be placed as a single contiguous
// block with no fallback to a split decomposition — true only for the
// 2-hour case (§4.6).
func (p *Planner) MustBlock(hours int) bool {
	return hours == 2
}
