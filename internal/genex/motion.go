package genex

// MotionStrategy computes where a free-moving biomolecule goes next. The
// attachment state machine swaps strategies as the molecule's state changes.
type MotionStrategy interface {
	NextPosition(current Vector2, dt float64) Vector2
}

// StillMotion keeps the molecule where it is (held by the user, or pinned
// inside a channel).
type StillMotion struct{}

func (StillMotion) NextPosition(current Vector2, dt float64) Vector2 {
	return current
}

// RandomWalkMotion is the slow Brownian wander of unattached molecules,
// confined to the motion bounds.
type RandomWalkMotion struct {
	rng      randSource
	speed    float64
	bounds   Rect
	velocity Vector2
}

func NewRandomWalkMotion(rng randSource, speed float64, bounds Rect) *RandomWalkMotion {
	return &RandomWalkMotion{rng: rng, speed: speed, bounds: bounds}
}

func (w *RandomWalkMotion) NextPosition(current Vector2, dt float64) Vector2 {
	kick := Vector2{
		X: w.rng.Float64() - 0.5,
		Y: w.rng.Float64() - 0.5,
	}.Scale(w.speed)
	w.velocity = w.velocity.Add(kick).Scale(0.85)
	return w.bounds.Clamp(current.Add(w.velocity.Scale(dt)))
}

// MoveToDestinationMotion heads straight for a destination at constant speed
// and stops on arrival.
type MoveToDestinationMotion struct {
	Destination Vector2
	speed       float64
}

func NewMoveToDestinationMotion(dest Vector2, speed float64) *MoveToDestinationMotion {
	return &MoveToDestinationMotion{Destination: dest, speed: speed}
}

func (m *MoveToDestinationMotion) NextPosition(current Vector2, dt float64) Vector2 {
	delta := m.Destination.Sub(current)
	step := m.speed * dt
	if delta.Magnitude() <= step {
		return m.Destination
	}
	return current.Add(delta.Normalized().Scale(step))
}

// DriftMotion carries the molecule along a fixed velocity, used while
// detaching so the molecule visibly floats away from its former site.
type DriftMotion struct {
	Velocity Vector2
}

func (d *DriftMotion) NextPosition(current Vector2, dt float64) Vector2 {
	return current.Add(d.Velocity.Scale(dt))
}
