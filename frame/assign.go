package frame

// A Span is the half-open column range [Start, End).
type Span struct {
	Start int
	End   int
}

// Len returns the number of columns in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether col falls inside the span.
func (s Span) Contains(col int) bool {
	return col >= s.Start && col < s.End
}

// An Assignment maps every rank to the columns it is
// responsible for rendering.
//
// Implementations must give every column to exactly one
// rank.
type Assignment interface {
	// Spans returns the non-empty column ranges owned by
	// a rank, in increasing order.
	Spans(rank int) []Span

	// Owner returns the rank that renders a column.
	Owner(col int) int
}

// Whole assigns every column of a frame to rank 0.
type Whole struct {
	Width int
}

// Spans returns the full frame for rank 0 and nothing for
// any other rank.
func (w Whole) Spans(rank int) []Span {
	if rank != 0 || w.Width == 0 {
		return nil
	}
	return []Span{{Start: 0, End: w.Width}}
}

// Owner always returns 0.
func (w Whole) Owner(col int) int {
	return 0
}

// Strips cuts a frame into Procs vertical strips of equal
// width.
//
// The Width mod Procs columns that are left over all go to
// rank 0, after its own strip.
// This keeps every worker's strip identical in size at the
// cost of extra load on the coordinator.
type Strips struct {
	Width int
	Procs int
}

// StripWidth is Width div Procs.
func (s Strips) StripWidth() int {
	return s.Width / s.Procs
}

// Remainder is Width mod Procs.
func (s Strips) Remainder() int {
	return s.Width % s.Procs
}

// Strip returns the regular strip of a rank, which may be
// empty when there are more ranks than columns.
func (s Strips) Strip(rank int) Span {
	w := s.StripWidth()
	return Span{Start: rank * w, End: (rank + 1) * w}
}

// Leftover returns the remainder columns owned by rank 0.
func (s Strips) Leftover() Span {
	return Span{Start: s.StripWidth() * s.Procs, End: s.Width}
}

// Spans returns the columns a rank renders.
func (s Strips) Spans(rank int) []Span {
	if rank < 0 || rank >= s.Procs {
		return nil
	}
	var res []Span
	if strip := s.Strip(rank); strip.Len() > 0 {
		res = append(res, strip)
	}
	if rank == 0 {
		if left := s.Leftover(); left.Len() > 0 {
			res = append(res, left)
		}
	}
	return res
}

// Owner returns the rank that renders a column.
func (s Strips) Owner(col int) int {
	w := s.StripWidth()
	if w == 0 || col >= w*s.Procs {
		return 0
	}
	return col / w
}
