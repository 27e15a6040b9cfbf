package genex

import "math"

// windPointsThroughSegments re-derives every point's position from the
// current segment list. Flat segments lay their points out as straight runs;
// square segments curl theirs into a winding path. A bounded spring
// relaxation then pulls actual neighbor distances toward the authoritative
// rest lengths. This runs after every structural change to the segment list,
// since capacities and counts change.
func (m *MessengerRna) windPointsThroughSegments() {
	m.layoutSegments()

	if m.chain.Len() == 1 {
		m.chain.Point(m.chain.Head()).Position = m.position
		return
	}

	targets := m.assignTargetPositions()
	m.relaxToTargets(targets)
}

// layoutSegments places the segments left to right starting at the strand's
// leading-edge anchor. Flat segments are zero-height strips on the strand
// line; square segments are centered vertically on it.
func (m *MessengerRna) layoutSegments() {
	cursor := m.position
	for i := 0; i < m.segments.Len(); i++ {
		s := m.segments.At(i)
		length := s.ContainedLength()
		switch s.Kind {
		case SegmentFlat:
			s.Bounds = Rect{MinX: cursor.X, MinY: cursor.Y, MaxX: cursor.X + length, MaxY: cursor.Y}
		case SegmentSquare:
			side := m.params.woundSideForLength(length)
			s.Bounds = Rect{
				MinX: cursor.X,
				MinY: cursor.Y - side/2,
				MaxX: cursor.X + side,
				MaxY: cursor.Y + side/2,
			}
		}
		s.Site.Position = Vector2{X: s.Bounds.MinX, Y: cursor.Y}
		cursor.X = s.Bounds.MaxX
	}
}

// assignTargetPositions walks the chain head to tail, mapping each point's
// cumulative distance into the segment that contains it and computing the
// target position there. Returns targets indexed by chain handle.
func (m *MessengerRna) assignTargetPositions() map[int]Vector2 {
	targets := make(map[int]Vector2, m.chain.Len())

	segIndex := 0
	segStart := 0.0
	cumulative := 0.0
	for h := m.chain.Head(); h != NilPoint; h = m.chain.Next(h) {
		cumulative += m.chain.Point(h).TargetDistanceToPrev
		for segIndex < m.segments.Len()-1 &&
			cumulative > segStart+m.segments.At(segIndex).ContainedLength() {
			segStart += m.segments.At(segIndex).ContainedLength()
			segIndex++
		}
		if m.segments.Len() == 0 {
			targets[h] = m.position
			continue
		}
		seg := m.segments.At(segIndex)
		targets[h] = m.pointTargetInSegment(seg, cumulative-segStart)
	}
	return targets
}

// pointTargetInSegment maps an offset within a segment to a position. Flat
// segments are straight; square segments use a spiral that winds outward from
// the center, giving the wound blob its curly look.
func (m *MessengerRna) pointTargetInSegment(seg *ShapeSegment, offset float64) Vector2 {
	length := seg.ContainedLength()
	if length <= 0 {
		return seg.Bounds.LowerLeft()
	}
	t := offset / length
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	if seg.Kind == SegmentFlat {
		return Vector2{X: seg.Bounds.MinX + t*length, Y: seg.Bounds.MinY}
	}

	center := seg.Bounds.Center()
	maxRadius := seg.Bounds.Width() / 2 * 0.9
	// Enough turns that consecutive windings sit roughly an inter-point
	// distance apart.
	turns := math.Max(1, maxRadius/m.params.InterPointDistance)
	angle := t * turns * 2 * math.Pi
	radius := maxRadius * (0.15 + 0.85*t)
	return Vector2{
		X: center.X + radius*math.Cos(angle),
		Y: center.Y + radius*math.Sin(angle),
	}
}

// relaxToTargets seeds each point at its target and runs a fixed number of
// spring relaxation steps so neighbor distances settle toward the rest
// lengths. Points inside flat segments stay pinned to their targets; only the
// wound portion relaxes.
func (m *MessengerRna) relaxToTargets(targets map[int]Vector2) {
	pinned := m.pinnedPoints()

	for h := m.chain.Head(); h != NilPoint; h = m.chain.Next(h) {
		p := m.chain.Point(h)
		p.Position = targets[h]
		p.Velocity = Vector2{}
		p.Acceleration = Vector2{}
	}

	k := m.params.RelaxationStiffness
	dt := m.params.RelaxationTimeStep
	damping := m.params.RelaxationDamping
	for iter := 0; iter < m.params.RelaxationIterations; iter++ {
		for h := m.chain.Head(); h != NilPoint; h = m.chain.Next(h) {
			m.chain.Point(h).Acceleration = Vector2{}
		}
		for h := m.chain.Next(m.chain.Head()); h != NilPoint; h = m.chain.Next(h) {
			cur := m.chain.Point(h)
			prev := m.chain.Point(m.chain.Prev(h))
			delta := cur.Position.Sub(prev.Position)
			dist := delta.Magnitude()
			if dist == 0 {
				continue
			}
			stretch := dist - cur.TargetDistanceToPrev
			force := delta.Normalized().Scale(k * stretch)
			prev.Acceleration = prev.Acceleration.Add(force)
			cur.Acceleration = cur.Acceleration.Sub(force)
		}
		m.chain.Update(dt)
		for h := m.chain.Head(); h != NilPoint; h = m.chain.Next(h) {
			p := m.chain.Point(h)
			p.Velocity = p.Velocity.Scale(damping)
			if pinned[h] {
				p.Position = targets[h]
				p.Velocity = Vector2{}
			}
		}
	}

	for h := m.chain.Head(); h != NilPoint; h = m.chain.Next(h) {
		p := m.chain.Point(h)
		p.Velocity = Vector2{}
		p.Acceleration = Vector2{}
	}
}

// pinnedPoints flags the handles whose cumulative distance falls inside a
// flat segment.
func (m *MessengerRna) pinnedPoints() map[int]bool {
	pinned := make(map[int]bool, m.chain.Len())
	segIndex := 0
	segStart := 0.0
	cumulative := 0.0
	for h := m.chain.Head(); h != NilPoint; h = m.chain.Next(h) {
		cumulative += m.chain.Point(h).TargetDistanceToPrev
		for segIndex < m.segments.Len()-1 &&
			cumulative > segStart+m.segments.At(segIndex).ContainedLength() {
			segStart += m.segments.At(segIndex).ContainedLength()
			segIndex++
		}
		if m.segments.Len() > 0 && m.segments.At(segIndex).Kind == SegmentFlat {
			pinned[h] = true
		}
	}
	return pinned
}
