package genex

// BiomoleculeKind identifies the mobile biomolecule types the engine knows
// about.
type BiomoleculeKind int

const (
	KindRibosome BiomoleculeKind = iota
	KindPolymerase
	KindDestroyer
	KindMessengerRna
)

func (k BiomoleculeKind) String() string {
	switch k {
	case KindRibosome:
		return "ribosome"
	case KindPolymerase:
		return "polymerase"
	case KindDestroyer:
		return "destroyer"
	case KindMessengerRna:
		return "mrna"
	default:
		return "unknown"
	}
}

// MobileBiomolecule is the shared state of every free-moving molecule: a
// position, a motion strategy, and an attachment state machine. The view
// layer reads positions and state; it never mutates them.
type MobileBiomolecule struct {
	id       string
	kind     BiomoleculeKind
	position Vector2
	motion   MotionStrategy
	asm      *AttachmentStateMachine

	existenceStrength float64
}

func (b *MobileBiomolecule) ID() string                            { return b.id }
func (b *MobileBiomolecule) Kind() BiomoleculeKind                 { return b.kind }
func (b *MobileBiomolecule) Position() Vector2                     { return b.position }
func (b *MobileBiomolecule) SetPosition(p Vector2)                 { b.position = p }
func (b *MobileBiomolecule) StateMachine() *AttachmentStateMachine { return b.asm }
func (b *MobileBiomolecule) ExistenceStrength() float64            { return b.existenceStrength }

func newMobileBiomolecule(kind BiomoleculeKind, pos Vector2) MobileBiomolecule {
	return MobileBiomolecule{
		id:                NewRandomID(),
		kind:              kind,
		position:          pos,
		motion:            StillMotion{},
		existenceStrength: 1.0,
	}
}

// Ribosome translates messenger RNA. While attached it pulls strand through
// its channel each tick and follows the channel-entrance point the strand
// reports.
type Ribosome struct {
	MobileBiomolecule

	// ChannelLength is the length of strand the ribosome's channel holds.
	ChannelLength float64

	strand *MessengerRna
}

func NewRibosome(params *Parameters, logger Logger, rng randSource, pos Vector2, channelLength float64) *Ribosome {
	if channelLength <= 0 {
		channelLength = params.RibosomeChannelLength
	}
	r := &Ribosome{
		MobileBiomolecule: newMobileBiomolecule(KindRibosome, pos),
		ChannelLength:     channelLength,
	}
	r.asm = newAttachmentStateMachine(&r.MobileBiomolecule, params, logger, rng)
	r.asm.detachRate = params.RibosomeDetachRate
	r.asm.onArrived = func() {
		if r.strand != nil {
			r.strand.InitiateTranslation(r)
		}
	}
	r.asm.onAvailable = func() {
		r.motion = NewRandomWalkMotion(rng, params.WanderSpeed, params.MotionBounds)
	}
	r.motion = NewRandomWalkMotion(rng, params.WanderSpeed, params.MotionBounds)
	return r
}

// Strand returns the strand this ribosome is working on, or nil.
func (r *Ribosome) Strand() *MessengerRna { return r.strand }

// beginAttach wires an accepted proposal: the ribosome remembers the strand
// and starts moving toward the returned site.
func (r *Ribosome) beginAttach(m *MessengerRna, site *AttachmentSite) {
	r.strand = m
	r.asm.MoveTowardAttachment(site)
}

// Step advances the ribosome one tick. While attached it advances translation
// and releases the strand upon completion; the return value reports whether
// translation completed during this tick.
func (r *Ribosome) Step(dt float64, translationRate float64) bool {
	r.asm.Step(dt)
	if r.strand != nil && r.asm.State() == StateDetaching {
		// Spontaneous (off-rate) detachment mid-translation.
		r.strand.ReleaseFromRibosome(r)
		r.strand = nil
		return false
	}
	if r.asm.State() != StateAttached || r.strand == nil {
		return false
	}
	completed := r.strand.AdvanceTranslation(r, translationRate*dt)
	r.position = r.strand.RibosomeAttachmentLocation(r)
	if completed {
		r.strand.ReleaseFromRibosome(r)
		r.strand = nil
		r.asm.Detach()
	}
	return completed
}

// RnaPolymerase transcribes genes into messenger RNA. Its state machine
// supports a recycle mode with a designated return zone for when it falls off
// the DNA.
type RnaPolymerase struct {
	MobileBiomolecule

	gene        *Gene
	strand      *MessengerRna
	transcribed float64
}

func NewRnaPolymerase(params *Parameters, logger Logger, rng randSource, pos Vector2) *RnaPolymerase {
	p := &RnaPolymerase{
		MobileBiomolecule: newMobileBiomolecule(KindPolymerase, pos),
	}
	p.asm = newAttachmentStateMachine(&p.MobileBiomolecule, params, logger, rng)
	p.asm.detachRate = params.PolymeraseDetachRate
	p.asm.recycleMode = params.PolymeraseRecycleMode
	p.asm.returnZone = params.PolymeraseReturnZone
	p.asm.onAvailable = func() {
		p.motion = NewRandomWalkMotion(rng, params.WanderSpeed, params.MotionBounds)
	}
	p.motion = NewRandomWalkMotion(rng, params.WanderSpeed, params.MotionBounds)
	return p
}

// Gene returns the gene being transcribed, or nil.
func (p *RnaPolymerase) Gene() *Gene { return p.gene }

// Strand returns the strand being synthesized, or nil.
func (p *RnaPolymerase) Strand() *MessengerRna { return p.strand }

func (p *RnaPolymerase) beginAttach(g *Gene, site *AttachmentSite) {
	p.gene = g
	p.asm.MoveTowardAttachment(site)
}

// MessengerRnaDestroyer consumes strands. Only one destroyer ever succeeds in
// claiming a given strand, and once it physically connects the destruction is
// terminal.
type MessengerRnaDestroyer struct {
	MobileBiomolecule

	ChannelLength float64

	strand *MessengerRna
}

func NewMessengerRnaDestroyer(params *Parameters, logger Logger, rng randSource, pos Vector2, channelLength float64) *MessengerRnaDestroyer {
	if channelLength <= 0 {
		channelLength = params.DestroyerChannelLength
	}
	d := &MessengerRnaDestroyer{
		MobileBiomolecule: newMobileBiomolecule(KindDestroyer, pos),
		ChannelLength:     channelLength,
	}
	d.asm = newAttachmentStateMachine(&d.MobileBiomolecule, params, logger, rng)
	d.asm.onArrived = func() {
		if d.strand != nil {
			d.strand.InitiateDestruction(d)
		}
	}
	d.asm.onAvailable = func() {
		d.motion = NewRandomWalkMotion(rng, params.WanderSpeed, params.MotionBounds)
	}
	d.motion = NewRandomWalkMotion(rng, params.WanderSpeed, params.MotionBounds)
	return d
}

// Strand returns the strand being destroyed, or nil.
func (d *MessengerRnaDestroyer) Strand() *MessengerRna { return d.strand }

func (d *MessengerRnaDestroyer) beginAttach(m *MessengerRna, site *AttachmentSite) {
	d.strand = m
	d.asm.MoveTowardAttachment(site)
}

// Step advances the destroyer one tick. While attached it advances the
// destruction and frees itself when the strand is gone.
func (d *MessengerRnaDestroyer) Step(dt float64, destructionRate float64) {
	d.asm.Step(dt)
	if d.asm.State() != StateAttached || d.strand == nil {
		return
	}
	completed := d.strand.AdvanceDestruction(destructionRate * dt)
	d.position = d.strand.DestroyerAttachmentLocation()
	if completed {
		d.strand = nil
		d.asm.ForceImmediateUnattachedAndAvailable()
	}
}
