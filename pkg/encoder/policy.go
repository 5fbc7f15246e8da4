package encoder

// DefaultMaxDepth bounds content-reference expansion when no policy is
// configured.
const DefaultMaxDepth = 3

// TraversalPolicy bounds how many content-reference edges the encoder follows
// into referenced items' own trees. The root item is encoded at depth 0 and
// every followed edge adds one; repeating-group rows stay at their parent's
// depth.
type TraversalPolicy struct {
	MaxDepth int
}

// DefaultPolicy returns the policy used by New.
func DefaultPolicy() TraversalPolicy {
	return TraversalPolicy{MaxDepth: DefaultMaxDepth}
}

// CanExpand reports whether a reference met at depth may be expanded.
func (p TraversalPolicy) CanExpand(depth int) bool {
	return depth <= p.MaxDepth
}

// Next returns the depth at which a referenced item is encoded.
func (p TraversalPolicy) Next(depth int) int {
	return depth + 1
}
