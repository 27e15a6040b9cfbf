package genex

import "math"

// AttachmentState is the per-biomolecule attachment protocol state.
type AttachmentState int

const (
	// StateUnattachedAvailable: free-floating, eligible to propose.
	StateUnattachedAvailable AttachmentState = iota

	// StateMovingToAttachment: proposal accepted, moving toward the site.
	StateMovingToAttachment

	// StateAttached: physically connected and doing work.
	StateAttached

	// StateDetaching: let go, drifting away before becoming available again.
	StateDetaching
)

func (s AttachmentState) String() string {
	switch s {
	case StateUnattachedAvailable:
		return "unattached-available"
	case StateMovingToAttachment:
		return "moving-to-attachment"
	case StateAttached:
		return "attached"
	case StateDetaching:
		return "detaching"
	default:
		return "unknown"
	}
}

// AttachmentStateMachine drives the unattached → attaching → attached →
// detaching cycle for one biomolecule. Transitions come from the proposal
// handshake, a per-tick distance check for arrival, a randomized
// rate-parameterized detachment decision while attached, and forced external
// overrides. All randomness flows through the injected source so tests can
// reproduce exact sequences.
type AttachmentStateMachine struct {
	owner  *MobileBiomolecule
	logger Logger
	rng    randSource

	state AttachmentState
	site  *AttachmentSite

	// detachRate is the off-rate: the per-second probability rate of
	// spontaneous detachment while attached. Zero disables it.
	detachRate float64

	detachDuration  float64
	arrivalDistance float64
	moveSpeed       float64
	detachTimer     float64

	// recycleMode sends the molecule to a point inside the return zone after
	// detaching, before it becomes available again.
	recycleMode bool
	returnZone  Rect
	returning   bool

	// onArrived fires when the molecule physically reaches its site; the
	// specializations use it to initiate translation or destruction.
	onArrived func()

	// onAvailable fires when the molecule becomes unattached and available.
	onAvailable func()
}

func newAttachmentStateMachine(owner *MobileBiomolecule, params *Parameters, logger Logger, rng randSource) *AttachmentStateMachine {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &AttachmentStateMachine{
		owner:           owner,
		logger:          logger,
		rng:             rng,
		state:           StateUnattachedAvailable,
		detachDuration:  params.DetachDuration,
		arrivalDistance: params.ArrivalDistance,
		moveSpeed:       params.AttachMoveSpeed,
	}
}

func (a *AttachmentStateMachine) State() AttachmentState { return a.state }
func (a *AttachmentStateMachine) Site() *AttachmentSite  { return a.site }

// IsAvailable reports whether the molecule can propose a new attachment.
func (a *AttachmentStateMachine) IsAvailable() bool {
	return a.state == StateUnattachedAvailable && !a.returning
}

func (a *AttachmentStateMachine) IsAttached() bool {
	return a.state == StateAttached
}

// MoveTowardAttachment records an accepted proposal and starts the molecule
// moving toward the site.
func (a *AttachmentStateMachine) MoveTowardAttachment(site *AttachmentSite) {
	if a.state != StateUnattachedAvailable {
		a.logger.Warnf("biomolecule %s: attachment proposal accepted while %s", a.owner.ID(), a.state)
	}
	a.site = site
	a.returning = false
	a.state = StateMovingToAttachment
}

// Detach begins a normal detachment: the site is released and the molecule
// drifts for the detach duration before it is available again.
func (a *AttachmentStateMachine) Detach() {
	a.releaseSite()
	a.state = StateDetaching
	a.detachTimer = a.detachDuration
	a.owner.motion = &DriftMotion{Velocity: Vector2{
		X: (a.rng.Float64() - 0.5) * a.moveSpeed,
		Y: (a.rng.Float64() - 0.5) * a.moveSpeed,
	}}
}

// ForceImmediateUnattachedAndAvailable is the forced override used for
// user-initiated grabs and aborted destructions: the molecule drops whatever
// it was doing and is immediately available. Safe to call in any state.
func (a *AttachmentStateMachine) ForceImmediateUnattachedAndAvailable() {
	a.releaseSite()
	a.returning = false
	a.detachTimer = 0
	a.becomeAvailable()
}

func (a *AttachmentStateMachine) releaseSite() {
	if a.site != nil && a.site.Occupant() == a.owner {
		a.site.clear()
	}
	a.site = nil
}

func (a *AttachmentStateMachine) becomeAvailable() {
	a.state = StateUnattachedAvailable
	if a.onAvailable != nil {
		a.onAvailable()
	}
}

// Step advances the state machine by one tick.
func (a *AttachmentStateMachine) Step(dt float64) {
	switch a.state {
	case StateMovingToAttachment:
		if a.site == nil {
			a.logger.Warnf("biomolecule %s: moving toward a nil attachment site", a.owner.ID())
			a.becomeAvailable()
			return
		}
		a.moveToward(a.site.Position, dt)
		if a.owner.position.Distance(a.site.Position) <= a.arrivalDistance {
			a.state = StateAttached
			if a.onArrived != nil {
				a.onArrived()
			}
		}

	case StateAttached:
		if a.detachRate > 0 && a.rng.Float64() < detachProbability(a.detachRate, dt) {
			a.Detach()
		}

	case StateDetaching:
		a.owner.position = a.owner.motion.NextPosition(a.owner.position, dt)
		a.detachTimer -= dt
		if a.detachTimer <= 0 {
			a.finishDetaching()
		}

	case StateUnattachedAvailable:
		if a.returning {
			a.owner.position = a.owner.motion.NextPosition(a.owner.position, dt)
			if a.returnZone.Contains(a.owner.position) {
				a.returning = false
				a.becomeAvailable()
			}
			return
		}
		a.owner.position = a.owner.motion.NextPosition(a.owner.position, dt)
	}
}

func (a *AttachmentStateMachine) finishDetaching() {
	if a.recycleMode && !a.returnZone.Contains(a.owner.position) {
		// Head for a random spot inside the return zone; availability waits
		// until the molecule gets there.
		dest := Vector2{
			X: a.returnZone.MinX + a.rng.Float64()*a.returnZone.Width(),
			Y: a.returnZone.MinY + a.rng.Float64()*a.returnZone.Height(),
		}
		a.owner.motion = NewMoveToDestinationMotion(dest, a.moveSpeed)
		a.state = StateUnattachedAvailable
		a.returning = true
		return
	}
	a.becomeAvailable()
}

func (a *AttachmentStateMachine) moveToward(dest Vector2, dt float64) {
	delta := dest.Sub(a.owner.position)
	step := a.moveSpeed * dt
	if delta.Magnitude() <= step {
		a.owner.position = dest
		return
	}
	a.owner.position = a.owner.position.Add(delta.Normalized().Scale(step))
}

// detachProbability converts a per-second off-rate into a per-tick
// probability via the exponential survival function.
func detachProbability(rate, dt float64) float64 {
	return 1 - math.Exp(-rate*dt)
}
