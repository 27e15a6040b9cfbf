package genex

// NilPoint marks the absence of a neighbor in the point chain.
const NilPoint = -1

// PointMass is a single shape-defining mass point on a strand. Points live in
// a PointChain arena and refer to their neighbors by index rather than by
// pointer, which keeps the chain trivially serializable.
type PointMass struct {
	Position     Vector2
	Velocity     Vector2
	Acceleration Vector2

	// TargetDistanceToPrev is the authoritative rest length of the link to the
	// previous point. It is set when the chain grows or shrinks and is never
	// inferred from current positions.
	TargetDistanceToPrev float64

	prev  int
	next  int
	inUse bool
}

// PointChain is an arena-backed doubly linked chain of PointMass records.
// The head is the oldest (leading) point of the strand, the tail the newest
// (trailing) point. The chain is acyclic: exactly one point has no previous
// neighbor and exactly one has no next neighbor.
type PointChain struct {
	points []PointMass
	free   []int
	head   int
	tail   int
	count  int
}

// NewPointChain creates a chain holding a single point at the given origin.
// The head's target distance is always zero since it has no predecessor.
func NewPointChain(origin Vector2) *PointChain {
	c := &PointChain{head: NilPoint, tail: NilPoint}
	h := c.alloc()
	p := c.Point(h)
	p.Position = origin
	p.prev = NilPoint
	p.next = NilPoint
	c.head = h
	c.tail = h
	c.count = 1
	return c
}

func (c *PointChain) alloc() int {
	if n := len(c.free); n > 0 {
		h := c.free[n-1]
		c.free = c.free[:n-1]
		c.points[h] = PointMass{inUse: true}
		return h
	}
	c.points = append(c.points, PointMass{inUse: true})
	return len(c.points) - 1
}

// Point returns the record for a handle. The pointer is only valid until the
// next structural change to the chain.
func (c *PointChain) Point(h int) *PointMass {
	return &c.points[h]
}

func (c *PointChain) Head() int { return c.head }
func (c *PointChain) Tail() int { return c.tail }
func (c *PointChain) Len() int  { return c.count }

func (c *PointChain) Next(h int) int { return c.points[h].next }
func (c *PointChain) Prev(h int) int { return c.points[h].prev }

// AppendToTail links a new point after the current tail with the given rest
// length, positioned on top of the old tail. Returns the new handle.
func (c *PointChain) AppendToTail(targetDistance float64) int {
	h := c.alloc()
	oldTail := c.tail
	p := c.Point(h)
	p.Position = c.Point(oldTail).Position
	p.TargetDistanceToPrev = targetDistance
	p.prev = oldTail
	p.next = NilPoint
	c.Point(oldTail).next = h
	c.tail = h
	c.count++
	return h
}

func (c *PointChain) removeTail() {
	if c.tail == c.head {
		return
	}
	old := c.tail
	prev := c.points[old].prev
	c.points[prev].next = NilPoint
	c.tail = prev
	c.points[old] = PointMass{prev: NilPoint, next: NilPoint}
	c.free = append(c.free, old)
	c.count--
}

// GrowTail adds the given length to the trailing end of the chain. The tail
// link is stretched up to the inter-point spacing before new points are added,
// so repeated small growth increments coalesce instead of spraying points.
func (c *PointChain) GrowTail(length, spacing, eps float64) {
	for length > eps {
		tail := c.Point(c.tail)
		if c.tail != c.head && tail.TargetDistanceToPrev < spacing {
			delta := spacing - tail.TargetDistanceToPrev
			if delta > length {
				delta = length
			}
			tail.TargetDistanceToPrev += delta
			length -= delta
			continue
		}
		delta := length
		if delta > spacing {
			delta = spacing
		}
		c.AppendToTail(delta)
		length -= delta
	}
}

// ReduceFromTail removes the given length from the trailing end, unlinking
// points that are fully consumed. The head point is never removed; once only
// the head remains the strand is considered gone.
func (c *PointChain) ReduceFromTail(length, eps float64) {
	for length > eps && c.tail != c.head {
		tail := c.Point(c.tail)
		if tail.TargetDistanceToPrev > length+eps {
			tail.TargetDistanceToPrev -= length
			return
		}
		length -= tail.TargetDistanceToPrev
		c.removeTail()
	}
}

// Translate shifts every point in the chain by the given offset.
func (c *PointChain) Translate(offset Vector2) {
	for h := c.head; h != NilPoint; h = c.points[h].next {
		p := &c.points[h]
		p.Position = p.Position.Add(offset)
	}
}

// Update advances every point with one semi-implicit Euler step: velocity
// picks up acceleration, position picks up the new velocity.
func (c *PointChain) Update(dt float64) {
	for h := c.head; h != NilPoint; h = c.points[h].next {
		p := &c.points[h]
		p.Velocity = p.Velocity.Add(p.Acceleration.Scale(dt))
		p.Position = p.Position.Add(p.Velocity.Scale(dt))
	}
}

// TotalTargetLength sums the rest lengths over the whole chain. Together with
// the segment list's total contained length this forms the conservation
// invariant checked by tests.
func (c *PointChain) TotalTargetLength() float64 {
	total := 0.0
	for h := c.head; h != NilPoint; h = c.points[h].next {
		total += c.points[h].TargetDistanceToPrev
	}
	return total
}

// Handles returns the chain's handles in head-to-tail order.
func (c *PointChain) Handles() []int {
	out := make([]int, 0, c.count)
	for h := c.head; h != NilPoint; h = c.points[h].next {
		out = append(out, h)
	}
	return out
}
