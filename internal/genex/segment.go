package genex

import "math"

// SegmentKind distinguishes the two shape segment variants.
type SegmentKind int

const (
	// SegmentFlat is a straight run of strand: contained length equals the
	// bounding-box width. Flat segments form the leader ahead of attachment
	// channels and the strand emerging behind them.
	SegmentFlat SegmentKind = iota

	// SegmentSquare is a wound region: the points inside it curl into a blob,
	// and contained length is derived from the bounding-box area.
	SegmentSquare
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentFlat:
		return "flat"
	case SegmentSquare:
		return "square"
	default:
		return "unknown"
	}
}

// ShapeSegment is a length-bearing region of a strand's outline. Segments
// form an ordered list owned by the strand: index 0 is the leading edge where
// ribosomes and destroyers attach, the last index is the trailing end where
// polymerase extrudes new strand.
//
// The two variants share all fields and differ only in how bounds relate to
// contained length; dispatch is a switch on Kind rather than an interface so
// the variant set stays closed and exhaustively checkable.
type ShapeSegment struct {
	Kind     SegmentKind
	Bounds   Rect
	Capacity float64
	Site     AttachmentSite

	params *Parameters
}

func newFlatSegment(params *Parameters, origin Vector2, capacity float64) *ShapeSegment {
	return &ShapeSegment{
		Kind:     SegmentFlat,
		Bounds:   Rect{MinX: origin.X, MinY: origin.Y, MaxX: origin.X, MaxY: origin.Y},
		Capacity: capacity,
		Site:     AttachmentSite{Position: origin},
		params:   params,
	}
}

func newSquareSegment(params *Parameters, origin Vector2) *ShapeSegment {
	return &ShapeSegment{
		Kind:     SegmentSquare,
		Bounds:   Rect{MinX: origin.X, MinY: origin.Y, MaxX: origin.X, MaxY: origin.Y},
		Capacity: math.Inf(1),
		Site:     AttachmentSite{Position: origin},
		params:   params,
	}
}

// ContainedLength returns the strand length held by this segment, derived
// from the bounds per the variant's geometry.
func (s *ShapeSegment) ContainedLength() float64 {
	switch s.Kind {
	case SegmentFlat:
		return s.Bounds.Width()
	case SegmentSquare:
		return s.params.woundLengthForSide(s.Bounds.Width())
	default:
		return 0
	}
}

// setContainedLength resizes the bounds to hold exactly the given length,
// keeping the lower-left corner anchored. The layout pass repositions
// segments after every structural change, so the anchor choice is interim.
func (s *ShapeSegment) setContainedLength(length float64) {
	if length < 0 {
		length = 0
	}
	origin := s.Bounds.LowerLeft()
	switch s.Kind {
	case SegmentFlat:
		s.Bounds = Rect{MinX: origin.X, MinY: origin.Y, MaxX: origin.X + length, MaxY: origin.Y}
	case SegmentSquare:
		side := s.params.woundSideForLength(length)
		s.Bounds = Rect{MinX: origin.X, MinY: origin.Y, MaxX: origin.X + side, MaxY: origin.Y + side}
	}
}

// RemainingCapacity returns how much more length this segment can take.
func (s *ShapeSegment) RemainingCapacity() float64 {
	return s.Capacity - s.ContainedLength()
}

// maxOutLength pegs the contained length at exactly the capacity without
// involving any other segment. Only meaningful for segments with finite
// capacity.
func (s *ShapeSegment) maxOutLength() {
	if math.IsInf(s.Capacity, 1) {
		return
	}
	s.setContainedLength(s.Capacity)
}

// overflowKind returns the variant a newly created overflow successor takes:
// flat segments spill into wound blobs and wound blobs into flat runs.
func (s *ShapeSegment) overflowKind() SegmentKind {
	if s.Kind == SegmentFlat {
		return SegmentSquare
	}
	return SegmentFlat
}

// Add grows this segment by the given length. Growth past capacity maxes the
// segment out and forwards the overflow to a newly created successor segment
// inserted immediately after this one, recursively if the successor also
// overflows.
func (s *ShapeSegment) Add(length float64, strand *MessengerRna, list *SegmentList) {
	eps := s.params.FloatComparisonFactor
	newLength := s.ContainedLength() + length
	if newLength <= s.Capacity+eps {
		s.setContainedLength(newLength)
		return
	}
	overflow := newLength - s.Capacity
	s.maxOutLength()
	successor := list.Next(s)
	if successor == nil || successor.Kind != s.overflowKind() {
		origin := s.Bounds.LowerRight()
		if s.overflowKind() == SegmentSquare {
			successor = newSquareSegment(s.params, origin)
		} else {
			successor = newFlatSegment(s.params, origin, s.params.LeaderLength)
		}
		list.InsertAfter(s, successor)
	}
	successor.Add(overflow, strand, list)
}

// Remove shrinks this segment by the given length. A segment whose contained
// length drops below the comparison epsilon is removed from the list.
func (s *ShapeSegment) Remove(length float64, list *SegmentList) {
	s.setContainedLength(s.ContainedLength() - length)
	if s.ContainedLength() < s.params.FloatComparisonFactor {
		list.RemoveSegment(s)
	}
}

// Advance moves strand through this segment during translation: length is
// pulled in from the input (next) segment and pushed out to the output
// (previous) segment, conserving total length. When the translated strand
// needs somewhere to go and no output segment exists yet, a fresh flat leader
// segment is spliced onto the front of the list — this is how the leading
// edge regains a free attachment site while translation is underway.
func (s *ShapeSegment) Advance(length float64, strand *MessengerRna, list *SegmentList) {
	eps := s.params.FloatComparisonFactor
	output := list.Prev(s)
	input := list.Next(s)

	switch {
	case input == nil:
		// The strand's trailing end is inside this segment, so the remaining
		// content flows backward out of it.
		amount := math.Min(length, s.ContainedLength())
		if output == nil {
			output = strand.spliceLeaderSegment(s)
		}
		s.Remove(amount, list)
		output.Add(amount, strand, list)

	case input.ContainedLength() > length:
		// The input segment can supply the full advancement length.
		if s.ContainedLength()+length <= s.Capacity+eps {
			s.Add(length, strand, list)
		} else {
			room := s.RemainingCapacity()
			if room > eps {
				s.maxOutLength()
			} else {
				room = 0
			}
			if output == nil {
				output = strand.spliceLeaderSegment(s)
			}
			output.Add(length-room, strand, list)
		}
		input.Remove(length, list)

	default:
		// The input segment is short of the advancement length: drain it
		// fully and make up the shortfall from this segment. Only the length
		// actually drained moves to the output, so an advance larger than the
		// remaining strand cannot mint length out of nothing.
		shortage := math.Min(length-input.ContainedLength(), s.ContainedLength())
		moved := input.ContainedLength() + shortage
		input.Remove(input.ContainedLength(), list)
		if output == nil {
			output = strand.spliceLeaderSegment(s)
		}
		s.Remove(shortage, list)
		output.Add(moved, strand, list)
	}
}

// AdvanceAndRemove moves strand through this segment during destruction:
// length is pulled in from the input segment but nothing is pushed to an
// output, so the strand permanently loses the advanced length.
func (s *ShapeSegment) AdvanceAndRemove(length float64, strand *MessengerRna, list *SegmentList) {
	input := list.Next(s)
	switch {
	case input == nil:
		s.Remove(math.Min(length, s.ContainedLength()), list)
	case input.ContainedLength() > length:
		input.Remove(length, list)
	default:
		shortage := length - input.ContainedLength()
		input.Remove(input.ContainedLength(), list)
		s.Remove(shortage, list)
	}
}

// SegmentList is the ordered sequence of shape segments owned by a strand.
type SegmentList struct {
	segments []*ShapeSegment
}

func (l *SegmentList) Len() int { return len(l.segments) }

func (l *SegmentList) At(i int) *ShapeSegment { return l.segments[i] }

func (l *SegmentList) First() *ShapeSegment {
	if len(l.segments) == 0 {
		return nil
	}
	return l.segments[0]
}

func (l *SegmentList) Last() *ShapeSegment {
	if len(l.segments) == 0 {
		return nil
	}
	return l.segments[len(l.segments)-1]
}

func (l *SegmentList) IndexOf(s *ShapeSegment) int {
	for i, seg := range l.segments {
		if seg == s {
			return i
		}
	}
	return -1
}

func (l *SegmentList) Contains(s *ShapeSegment) bool {
	return l.IndexOf(s) != -1
}

// Prev returns the segment before s in the list (toward the leading edge).
func (l *SegmentList) Prev(s *ShapeSegment) *ShapeSegment {
	i := l.IndexOf(s)
	if i <= 0 {
		return nil
	}
	return l.segments[i-1]
}

// Next returns the segment after s in the list (toward the trailing end).
func (l *SegmentList) Next(s *ShapeSegment) *ShapeSegment {
	i := l.IndexOf(s)
	if i == -1 || i == len(l.segments)-1 {
		return nil
	}
	return l.segments[i+1]
}

func (l *SegmentList) Append(s *ShapeSegment) {
	l.segments = append(l.segments, s)
}

func (l *SegmentList) InsertFront(s *ShapeSegment) {
	l.segments = append([]*ShapeSegment{s}, l.segments...)
}

func (l *SegmentList) InsertAfter(existing, s *ShapeSegment) {
	i := l.IndexOf(existing)
	if i == -1 {
		l.segments = append(l.segments, s)
		return
	}
	l.segments = append(l.segments, nil)
	copy(l.segments[i+2:], l.segments[i+1:])
	l.segments[i+1] = s
}

func (l *SegmentList) RemoveSegment(s *ShapeSegment) {
	i := l.IndexOf(s)
	if i == -1 {
		return
	}
	l.segments = append(l.segments[:i], l.segments[i+1:]...)
}

// TotalLength sums the contained length across all segments. The conservation
// invariant requires this to equal the chain's total target length.
func (l *SegmentList) TotalLength() float64 {
	total := 0.0
	for _, s := range l.segments {
		total += s.ContainedLength()
	}
	return total
}
