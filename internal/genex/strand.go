package genex

import "math"

// MessengerRna models a single messenger RNA strand as a chain of mass points
// plus an ordered list of shape segments. It is the sole mutator of both:
// ribosomes, polymerase, and destroyers drive it exclusively through the
// methods below.
type MessengerRna struct {
	id     string
	params *Parameters
	logger Logger

	chain    *PointChain
	segments *SegmentList

	// position is the model-space anchor of the leading edge, which the
	// layout pass uses as its origin.
	position Vector2

	beingSynthesized  bool
	existenceStrength float64

	ribosomeSegments map[*Ribosome]*ShapeSegment

	destroyer          *MessengerRnaDestroyer
	destroyerSegment   *ShapeSegment
	destroyerConnected bool

	ribosomeHint  PlacementHint
	destroyerHint PlacementHint

	// fading is set once a fade-away strand has fully formed; the simulation
	// decrements existence strength each tick until the strand is removed.
	fading bool

	wanderVelocity Vector2
}

// NewMessengerRna creates a zero-length strand at the given spawn position.
// The strand starts in the synthesizing state with a single leading flat
// segment whose capacity is the leader length.
func NewMessengerRna(params *Parameters, logger Logger, spawn Vector2) *MessengerRna {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	m := &MessengerRna{
		id:                NewRandomID(),
		params:            params,
		logger:            logger,
		chain:             NewPointChain(spawn),
		segments:          &SegmentList{},
		position:          spawn,
		beingSynthesized:  true,
		existenceStrength: 1.0,
		ribosomeSegments:  make(map[*Ribosome]*ShapeSegment),
		ribosomeHint:      PlacementHint{Kind: KindRibosome, Position: spawn},
		destroyerHint:     PlacementHint{Kind: KindDestroyer, Position: spawn},
	}
	m.segments.Append(newFlatSegment(params, spawn, params.LeaderLength))
	return m
}

func (m *MessengerRna) ID() string                 { return m.id }
func (m *MessengerRna) Position() Vector2          { return m.position }
func (m *MessengerRna) BeingSynthesized() bool     { return m.beingSynthesized }
func (m *MessengerRna) ExistenceStrength() float64 { return m.existenceStrength }
func (m *MessengerRna) Chain() *PointChain         { return m.chain }
func (m *MessengerRna) Segments() *SegmentList     { return m.segments }

// TotalLength is the strand's current length, as accounted by the segment
// list. The chain's total target length must agree within epsilon.
func (m *MessengerRna) TotalLength() float64 {
	return m.segments.TotalLength()
}

// AttachedRibosomeCount reports how many ribosomes currently occupy segments.
func (m *MessengerRna) AttachedRibosomeCount() int {
	return len(m.ribosomeSegments)
}

// BeingDestroyed reports whether a destroyer has claimed the strand.
func (m *MessengerRna) BeingDestroyed() bool {
	return m.destroyer != nil
}

// Gone reports whether the strand has been fully consumed or has faded away.
// A destroyed strand is gone when the first shape-defining point is the last.
func (m *MessengerRna) Gone() bool {
	if m.existenceStrength <= 0 {
		return true
	}
	return m.destroyerConnected && m.chain.Len() <= 1
}

// AddLength grows the strand at the trailing end by the given length. Called
// by the attached polymerase once per transcription step. Growth goes to the
// last shape segment, overflowing the flat leader into a wound blob.
func (m *MessengerRna) AddLength(length float64) {
	if !m.beingSynthesized {
		m.logger.Warnf("mrna %s: AddLength called on a strand that is not being synthesized", m.id)
		return
	}
	if length <= 0 {
		return
	}
	eps := m.params.FloatComparisonFactor
	m.chain.GrowTail(length, m.params.InterPointDistance, eps)
	last := m.segments.Last()
	if last == nil {
		m.logger.Warnf("mrna %s: segment list unexpectedly empty during growth", m.id)
		return
	}
	last.Add(length, m, m.segments)
	m.windPointsThroughSegments()
}

// ReleaseFromPolymerase ends synthesis. The strand becomes available for
// translation or destruction proposals, or begins fading on screens where
// translation never occurs.
func (m *MessengerRna) ReleaseFromPolymerase() {
	if !m.beingSynthesized {
		m.logger.Warnf("mrna %s: redundant release from polymerase", m.id)
		return
	}
	m.beingSynthesized = false
	if m.params.FadeInsteadOfTranslating {
		m.fading = true
	}
}

// spliceLeaderSegment creates a fresh flat leader segment ahead of the given
// segment and puts it at the front of the list. The new segment carries a
// free attachment site, which is how additional ribosomes find a place to
// bind while earlier ones are still translating.
func (m *MessengerRna) spliceLeaderSegment(ahead *ShapeSegment) *ShapeSegment {
	leader := newFlatSegment(m.params, ahead.Bounds.UpperLeft(), m.params.LeaderLength)
	m.segments.InsertFront(leader)
	return leader
}

// ConsiderProposalFromRibosome accepts a ribosome's attachment proposal iff
// the strand is not claimed by a destroyer, the leading-edge site is free,
// and the ribosome is within connection distance. On acceptance the ribosome
// is mapped to the leading segment and the site is returned; otherwise nil.
func (m *MessengerRna) ConsiderProposalFromRibosome(r *Ribosome) *AttachmentSite {
	if m.destroyer != nil {
		return nil
	}
	if _, already := m.ribosomeSegments[r]; already {
		m.logger.Warnf("mrna %s: redundant proposal from already-attached ribosome %s", m.id, r.ID())
		return nil
	}
	leading := m.segments.First()
	if leading == nil || leading.Site.IsOccupied() {
		return nil
	}
	if leading.Site.Position.Distance(r.Position()) > m.params.RibosomeConnectDistance {
		return nil
	}
	leading.Site.attach(&r.MobileBiomolecule)
	m.ribosomeSegments[r] = leading
	m.ribosomeHint.Deactivate()
	return &leading.Site
}

// ConsiderProposalFromDestroyer accepts a destroyer's proposal iff the strand
// is fully synthesized, no destroyer has already claimed it, the leading-edge
// site is free, and the destroyer is within connection distance. At most one
// destroyer ever succeeds.
func (m *MessengerRna) ConsiderProposalFromDestroyer(d *MessengerRnaDestroyer) *AttachmentSite {
	if m.destroyer != nil {
		return nil
	}
	if m.beingSynthesized {
		return nil
	}
	leading := m.segments.First()
	if leading == nil || leading.Site.IsOccupied() {
		return nil
	}
	if leading.Site.Position.Distance(d.Position()) > m.params.DestroyerConnectDistance {
		return nil
	}
	leading.Site.attach(&d.MobileBiomolecule)
	m.destroyer = d
	m.destroyerSegment = leading
	m.destroyerHint.Deactivate()
	return &leading.Site
}

// InitiateTranslation is called when a moving-to-attach ribosome physically
// arrives at its site. The leading segment's capacity is set to the channel
// length plus the leader length so subsequent advances know how much strand
// can occupy the channel before overflowing.
func (m *MessengerRna) InitiateTranslation(r *Ribosome) {
	seg, ok := m.ribosomeSegments[r]
	if !ok {
		m.logger.Warnf("mrna %s: InitiateTranslation for non-attached ribosome %s", m.id, r.ID())
		return
	}
	seg.Capacity = r.ChannelLength + m.params.LeaderLength
}

// InitiateDestruction is called when the claiming destroyer physically
// arrives. From this moment the destruction is irrevocable.
func (m *MessengerRna) InitiateDestruction(d *MessengerRnaDestroyer) {
	if m.destroyer != d {
		m.logger.Warnf("mrna %s: InitiateDestruction from a destroyer that did not claim the strand", m.id)
		return
	}
	m.destroyerConnected = true
	m.destroyerSegment.Capacity = d.ChannelLength + m.params.LeaderLength
}

// AbortDestruction cancels a claimed-but-not-yet-connected destruction,
// clearing the destroyer reference and freeing the site. Calling it after the
// destroyer has physically connected is a precondition violation and is
// ignored with a warning.
func (m *MessengerRna) AbortDestruction() {
	if m.destroyer == nil {
		m.logger.Warnf("mrna %s: AbortDestruction with no destroyer claim", m.id)
		return
	}
	if m.destroyerConnected {
		m.logger.Warnf("mrna %s: AbortDestruction after physical connection is not valid", m.id)
		return
	}
	if m.destroyerSegment != nil {
		m.destroyerSegment.Site.clear()
	}
	d := m.destroyer
	m.destroyer = nil
	m.destroyerSegment = nil
	d.strand = nil
	d.StateMachine().ForceImmediateUnattachedAndAvailable()
}

// AdvanceTranslation moves the strand through the given ribosome's channel by
// the given length. Returns true when translation has completed, meaning the
// ribosome's segment has fully drained. Total strand length is conserved.
func (m *MessengerRna) AdvanceTranslation(r *Ribosome, length float64) bool {
	seg, ok := m.ribosomeSegments[r]
	if !ok {
		m.logger.Warnf("mrna %s: AdvanceTranslation for non-attached ribosome %s", m.id, r.ID())
		return true
	}
	if !m.segments.Contains(seg) {
		return true
	}
	seg.Advance(length, m, m.segments)
	completed := !m.segments.Contains(seg) || seg.ContainedLength() <= m.params.FloatComparisonFactor
	m.windPointsThroughSegments()
	return completed
}

// AdvanceDestruction irreversibly shrinks the strand by the given length.
// Returns true when the strand has been fully consumed.
func (m *MessengerRna) AdvanceDestruction(length float64) bool {
	if m.destroyerSegment == nil {
		m.logger.Warnf("mrna %s: AdvanceDestruction with no connected segment", m.id)
		return true
	}
	m.destroyerSegment.AdvanceAndRemove(length, m, m.segments)
	m.chain.ReduceFromTail(length, m.params.FloatComparisonFactor)
	m.windPointsThroughSegments()
	return m.chain.Len() <= 1
}

// ReleaseFromRibosome removes the given ribosome's attachment. When the last
// ribosome lets go the strand resumes unattached motion eligibility.
func (m *MessengerRna) ReleaseFromRibosome(r *Ribosome) {
	seg, ok := m.ribosomeSegments[r]
	if !ok {
		m.logger.Warnf("mrna %s: release for non-attached ribosome %s", m.id, r.ID())
		return
	}
	if m.segments.Contains(seg) && seg.Site.Occupant() == &r.MobileBiomolecule {
		seg.Site.clear()
	}
	delete(m.ribosomeSegments, r)
}

// ProportionTranslated returns how far the given ribosome has progressed,
// as translated length over total length. The result is clamped at zero on
// the low side only: floating error can push it marginally above one and
// callers treat that as complete.
func (m *MessengerRna) ProportionTranslated(r *Ribosome) float64 {
	seg, ok := m.ribosomeSegments[r]
	if !ok {
		m.logger.Warnf("mrna %s: ProportionTranslated for non-attached ribosome %s", m.id, r.ID())
		return 0
	}
	total := m.TotalLength()
	if total <= m.params.FloatComparisonFactor {
		return 1
	}
	translated := 0.0
	for i := 0; i < m.segments.Len(); i++ {
		s := m.segments.At(i)
		if s == seg {
			break
		}
		translated += s.ContainedLength()
	}
	// Within the ribosome's own segment, only the portion past the channel
	// entrance counts as translated.
	translated += seg.ContainedLength() - r.ChannelLength/2
	return math.Max(translated/total, 0)
}

// RibosomeAttachmentLocation computes the channel-entrance point for an
// attached or attaching ribosome. While the occupied segment is still the
// leading one the entrance sits a leader length in from its right edge; once
// the leader has been consumed it sits a channel length in from the left
// edge. This is how a translating ribosome follows the strand as it moves.
func (m *MessengerRna) RibosomeAttachmentLocation(r *Ribosome) Vector2 {
	seg, ok := m.ribosomeSegments[r]
	if !ok {
		m.logger.Warnf("mrna %s: attachment location for non-attached ribosome %s", m.id, r.ID())
		return Vector2{}
	}
	return m.channelEntrance(seg, r.ChannelLength)
}

// DestroyerAttachmentLocation is the destroyer's equivalent of
// RibosomeAttachmentLocation.
func (m *MessengerRna) DestroyerAttachmentLocation() Vector2 {
	if m.destroyerSegment == nil {
		m.logger.Warnf("mrna %s: destroyer attachment location with no claim", m.id)
		return Vector2{}
	}
	var channel float64
	if m.destroyer != nil {
		channel = m.destroyer.ChannelLength
	}
	return m.channelEntrance(m.destroyerSegment, channel)
}

func (m *MessengerRna) channelEntrance(seg *ShapeSegment, channelLength float64) Vector2 {
	if m.segments.Prev(seg) == nil {
		corner := seg.Bounds.LowerRight()
		return Vector2{X: corner.X - m.params.LeaderLength, Y: corner.Y}
	}
	corner := seg.Bounds.LowerLeft()
	return Vector2{X: corner.X + channelLength, Y: corner.Y}
}

// Translate shifts the whole strand: every point, every segment, and every
// hint moves by the same offset.
func (m *MessengerRna) Translate(offset Vector2) {
	m.position = m.position.Add(offset)
	m.chain.Translate(offset)
	for i := 0; i < m.segments.Len(); i++ {
		s := m.segments.At(i)
		s.Bounds = s.Bounds.Translated(offset)
		s.Site.Position = s.Site.Position.Add(offset)
	}
	m.ribosomeHint.Position = m.ribosomeHint.Position.Add(offset)
	m.destroyerHint.Position = m.destroyerHint.Position.Add(offset)
}

// ActivateHints lights up the placement hint matching the candidate's kind,
// provided that kind could currently attach.
func (m *MessengerRna) ActivateHints(kind BiomoleculeKind) {
	if m.destroyer != nil {
		return
	}
	leading := m.segments.First()
	if leading == nil || leading.Site.IsOccupied() {
		return
	}
	m.ribosomeHint.Position = leading.Site.Position
	m.destroyerHint.Position = leading.Site.Position
	m.ribosomeHint.ActivateIfMatch(kind)
	if !m.beingSynthesized {
		m.destroyerHint.ActivateIfMatch(kind)
	}
}

// DeactivateHints clears both placement hints.
func (m *MessengerRna) DeactivateHints() {
	m.ribosomeHint.Deactivate()
	m.destroyerHint.Deactivate()
}

// RibosomeHint and DestroyerHint expose the hints for the view layer.
func (m *MessengerRna) RibosomeHint() PlacementHint  { return m.ribosomeHint }
func (m *MessengerRna) DestroyerHint() PlacementHint { return m.destroyerHint }

// eligibleForWander reports whether the strand currently moves on its own.
func (m *MessengerRna) eligibleForWander() bool {
	return !m.beingSynthesized && len(m.ribosomeSegments) == 0 && m.destroyer == nil && !m.fading
}

// Step advances strand-local behavior by one tick: fade-away strands lose
// existence strength, free strands drift.
func (m *MessengerRna) Step(dt float64, rng randSource) {
	if m.fading {
		m.existenceStrength -= m.params.FadeRate * dt
		if m.existenceStrength < 0 {
			m.existenceStrength = 0
		}
		return
	}
	if !m.eligibleForWander() {
		return
	}
	// Slow Brownian drift: steer the wander velocity by a small random kick
	// and keep the strand inside the motion bounds.
	kick := Vector2{X: rng.Float64() - 0.5, Y: rng.Float64() - 0.5}.Scale(m.params.WanderSpeed / 4)
	m.wanderVelocity = m.wanderVelocity.Add(kick).Scale(0.9)
	offset := m.wanderVelocity.Scale(dt)
	next := m.params.MotionBounds.Clamp(m.position.Add(offset))
	m.Translate(next.Sub(m.position))
}

// randSource is the subset of rand.Rand the strand needs, injectable for
// deterministic tests.
type randSource interface {
	Float64() float64
}
