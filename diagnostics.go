package bramble

// Diagnostics is the ordered list of findings for one file, in rule
// traversal order. The empty value is nil, which allocates nothing; use
// NewDiagnostics to normalize.
type Diagnostics []string

// NewDiagnostics normalizes a message slice: empty input becomes the nil
// Diagnostics value, non-empty input is kept as-is with order preserved.
func NewDiagnostics(msgs []string) Diagnostics {
	if len(msgs) == 0 {
		return nil
	}
	return Diagnostics(msgs)
}

// IsEmpty reports whether there are no findings.
func (d Diagnostics) IsEmpty() bool {
	return len(d) == 0
}

// Len returns the number of findings.
func (d Diagnostics) Len() int {
	return len(d)
}

// Equal reports structural equality: same messages in the same order.
func (d Diagnostics) Equal(other Diagnostics) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if d[i] != other[i] {
			return false
		}
	}
	return true
}
