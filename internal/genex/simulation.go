package genex

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Simulation owns one gene-expression model: a DNA molecule with genes, the
// strands transcribed from them, and the mobile biomolecules that work on
// those strands. All mutation happens inside Step under a single lock, so the
// model is effectively single-threaded and tick-driven; Run merely wraps Step
// in a ticker goroutine.
type Simulation struct {
	mu     sync.RWMutex
	id     string
	params *Parameters
	logger Logger
	rng    *rand.Rand

	simTime float64
	tick    int64

	dna         *DnaMolecule
	strands     []*MessengerRna
	ribosomes   []*Ribosome
	polymerases []*RnaPolymerase
	destroyers  []*MessengerRnaDestroyer

	events []Event

	stopCh    chan struct{}
	isRunning bool
}

// NewSimulation creates a simulation seeded from the wall clock.
func NewSimulation(params *Parameters) *Simulation {
	return newSimulation(params, NewNoOpLogger(), rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSimulationWithSeed creates a deterministic simulation for tests and
// reproducible runs.
func NewSimulationWithSeed(params *Parameters, seed int64) *Simulation {
	return newSimulation(params, NewNoOpLogger(), rand.New(rand.NewSource(seed)))
}

// NewSimulationWithLogger creates a wall-clock-seeded simulation with the
// given logger injected.
func NewSimulationWithLogger(params *Parameters, logger Logger) *Simulation {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return newSimulation(params, logger, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func newSimulation(params *Parameters, logger Logger, rng *rand.Rand) *Simulation {
	return &Simulation{
		id:     NewRandomID(),
		params: params,
		logger: logger,
		rng:    rng,
		dna:    NewDnaMolecule(params),
		stopCh: make(chan struct{}),
	}
}

// SetLogger replaces the injected logger. Call before the first Step.
func (s *Simulation) SetLogger(logger Logger) {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	s.logger = logger
}

func (s *Simulation) SetID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

func (s *Simulation) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Simulation) Params() *Parameters { return s.params }

func (s *Simulation) Time() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simTime
}

func (s *Simulation) TickCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// AddGene registers a transcribable gene on the DNA molecule.
func (s *Simulation) AddGene(start Vector2, length float64) *Gene {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := NewGene(start, length)
	s.dna.AddGene(g)
	return g
}

func (s *Simulation) AddRibosome(pos Vector2, channelLength float64) *Ribosome {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := NewRibosome(s.params, s.logger, s.rng, pos, channelLength)
	s.ribosomes = append(s.ribosomes, r)
	return r
}

func (s *Simulation) AddPolymerase(pos Vector2) *RnaPolymerase {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := NewRnaPolymerase(s.params, s.logger, s.rng, pos)
	s.polymerases = append(s.polymerases, p)
	return p
}

func (s *Simulation) AddDestroyer(pos Vector2, channelLength float64) *MessengerRnaDestroyer {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := NewMessengerRnaDestroyer(s.params, s.logger, s.rng, pos, channelLength)
	s.destroyers = append(s.destroyers, d)
	return d
}

// SpawnStrand creates a fully synthesized free strand of the given length, as
// if transcription had already completed. Useful for seeding and tests.
func (s *Simulation) SpawnStrand(pos Vector2, length float64) *MessengerRna {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := NewMessengerRna(s.params, s.logger, pos)
	m.AddLength(length)
	m.ReleaseFromPolymerase()
	s.strands = append(s.strands, m)
	return m
}

func (s *Simulation) Strands() []*MessengerRna {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*MessengerRna, len(s.strands))
	copy(out, s.strands)
	return out
}

func (s *Simulation) Genes() []*Gene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dna.Genes()
}

// AbortDestruction cancels a not-yet-connected destruction on the identified
// strand.
func (s *Simulation) AbortDestruction(strandID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.strands {
		if m.ID() != strandID {
			continue
		}
		if !m.BeingDestroyed() {
			return fmt.Errorf("strand %s is not being destroyed", strandID)
		}
		m.AbortDestruction()
		s.recordEvent(EventDestructionAborted, m.ID(), "")
		return nil
	}
	return fmt.Errorf("strand %s not found", strandID)
}

// Step advances the whole model by dt seconds: transcription first, then
// attachment proposals, then every biomolecule and strand, then cleanup of
// consumed strands.
func (s *Simulation) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.simTime += dt
	s.tick++

	s.stepTranscription(dt)
	s.stepProposals()
	s.stepRibosomes(dt)
	s.stepDestroyers(dt)
	for _, m := range s.strands {
		m.Step(dt, s.rng)
	}
	s.pruneStrands()
}

func (s *Simulation) stepTranscription(dt float64) {
	eps := s.params.FloatComparisonFactor
	for _, p := range s.polymerases {
		if p.asm.IsAvailable() {
			if g, site := s.dna.ConsiderProposalFromPolymerase(p); g != nil {
				p.beginAttach(g, site)
			}
		}

		p.asm.Step(dt)

		if p.asm.State() == StateDetaching && p.gene != nil {
			// Fell off the DNA mid-transcription; the partial strand is
			// released as-is.
			if p.strand != nil {
				p.strand.ReleaseFromPolymerase()
				s.recordEvent(EventStrandCompleted, p.strand.ID(), p.ID())
			}
			p.gene = nil
			p.strand = nil
			p.transcribed = 0
			continue
		}

		if p.asm.State() != StateAttached || p.gene == nil {
			continue
		}
		if p.strand == nil {
			p.strand = NewMessengerRna(s.params, s.logger, p.gene.Start)
			s.strands = append(s.strands, p.strand)
			p.transcribed = 0
		}
		growth := math.Min(s.params.TranscriptionRate*dt, p.gene.Length-p.transcribed)
		if growth > 0 {
			p.strand.AddLength(growth)
			p.transcribed += growth
			p.position = Vector2{X: p.gene.Start.X + p.transcribed, Y: p.gene.Start.Y}
		}
		if p.transcribed >= p.gene.Length-eps {
			p.strand.ReleaseFromPolymerase()
			s.recordEvent(EventStrandCompleted, p.strand.ID(), p.ID())
			p.gene = nil
			p.strand = nil
			p.transcribed = 0
			p.asm.Detach()
		}
	}
}

func (s *Simulation) stepProposals() {
	for _, m := range s.strands {
		m.DeactivateHints()
	}
	for _, r := range s.ribosomes {
		if !r.asm.IsAvailable() {
			continue
		}
		for _, m := range s.strands {
			m.ActivateHints(KindRibosome)
			if site := m.ConsiderProposalFromRibosome(r); site != nil {
				r.beginAttach(m, site)
				break
			}
		}
	}
	for _, d := range s.destroyers {
		if !d.asm.IsAvailable() {
			continue
		}
		for _, m := range s.strands {
			m.ActivateHints(KindDestroyer)
			if site := m.ConsiderProposalFromDestroyer(d); site != nil {
				d.beginAttach(m, site)
				break
			}
		}
	}
}

func (s *Simulation) stepRibosomes(dt float64) {
	for _, r := range s.ribosomes {
		wasAttached := r.asm.IsAttached()
		strandBefore := r.strand
		completed := r.Step(dt, s.params.TranslationRate)
		if !wasAttached && r.asm.IsAttached() && r.strand != nil {
			s.recordEvent(EventTranslationStarted, r.strand.ID(), r.ID())
		}
		if completed && strandBefore != nil {
			s.recordEvent(EventTranslationCompleted, strandBefore.ID(), r.ID())
		}
	}
}

func (s *Simulation) stepDestroyers(dt float64) {
	for _, d := range s.destroyers {
		wasAttached := d.asm.IsAttached()
		d.Step(dt, s.params.DestructionRate)
		if !wasAttached && d.asm.IsAttached() && d.strand != nil {
			s.recordEvent(EventDestructionStarted, d.strand.ID(), d.ID())
		}
	}
}

func (s *Simulation) pruneStrands() {
	kept := s.strands[:0]
	for _, m := range s.strands {
		if m.Gone() {
			s.recordEvent(EventStrandGone, m.ID(), "")
			continue
		}
		kept = append(kept, m)
	}
	s.strands = kept
}

func (s *Simulation) recordEvent(t EventType, strandID, biomoleculeID string) {
	s.events = append(s.events, Event{
		SimulationID:  s.id,
		Type:          t,
		StrandID:      strandID,
		BiomoleculeID: biomoleculeID,
		SimTime:       s.simTime,
		Timestamp:     time.Now().UnixMilli(),
	})
}

// DrainEvents returns all queued lifecycle events and clears the queue. The
// core never pushes: callers poll and forward to whatever notification
// machinery they run.
func (s *Simulation) DrainEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.events
	s.events = nil
	return out
}

// Run starts a ticker goroutine stepping the simulation at the given
// interval, with dt equal to the interval. It can be called again after Stop.
func (s *Simulation) Run(interval time.Duration) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.isRunning = true
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Step(interval.Seconds())
			case <-s.stopCh:
				s.mu.Lock()
				s.isRunning = false
				s.mu.Unlock()
				return
			}
		}
	}()
}

// Stop halts a running simulation. Run can be called again afterwards.
func (s *Simulation) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	close(s.stopCh)
}

func (s *Simulation) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// StateView is the poll-friendly JSON projection of the model that the view
// layer reads.
type StateView struct {
	SimulationID string            `json:"simulation_id"`
	Time         float64           `json:"time"`
	Tick         int64             `json:"tick"`
	Strands      []StrandView      `json:"strands"`
	Biomolecules []BiomoleculeView `json:"biomolecules"`
	Genes        []GeneView        `json:"genes"`
}

type StrandView struct {
	ID                string        `json:"id"`
	BeingSynthesized  bool          `json:"being_synthesized"`
	BeingDestroyed    bool          `json:"being_destroyed"`
	ExistenceStrength float64       `json:"existence_strength"`
	Length            float64       `json:"length"`
	RibosomeCount     int           `json:"ribosome_count"`
	Points            []Vector2     `json:"points"`
	Segments          []SegmentView `json:"segments"`
}

type SegmentView struct {
	Kind            string  `json:"kind"`
	Bounds          Rect    `json:"bounds"`
	ContainedLength float64 `json:"contained_length"`
	// Capacity is -1 for effectively unlimited (wound) segments.
	Capacity     float64 `json:"capacity"`
	SiteOccupied bool    `json:"site_occupied"`
}

type BiomoleculeView struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Position Vector2 `json:"position"`
	State    string  `json:"state"`
	StrandID string  `json:"strand_id,omitempty"`
}

type GeneView struct {
	ID           string  `json:"id"`
	Start        Vector2 `json:"start"`
	Length       float64 `json:"length"`
	SiteOccupied bool    `json:"site_occupied"`
}

// State builds a consistent read-only view of the whole model.
func (s *Simulation) State() StateView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := StateView{
		SimulationID: s.id,
		Time:         s.simTime,
		Tick:         s.tick,
	}
	for _, m := range s.strands {
		view.Strands = append(view.Strands, strandView(m))
	}
	for _, r := range s.ribosomes {
		view.Biomolecules = append(view.Biomolecules, biomoleculeView(&r.MobileBiomolecule, strandIDOf(r.strand)))
	}
	for _, p := range s.polymerases {
		view.Biomolecules = append(view.Biomolecules, biomoleculeView(&p.MobileBiomolecule, strandIDOf(p.strand)))
	}
	for _, d := range s.destroyers {
		view.Biomolecules = append(view.Biomolecules, biomoleculeView(&d.MobileBiomolecule, strandIDOf(d.strand)))
	}
	for _, g := range s.dna.Genes() {
		view.Genes = append(view.Genes, GeneView{
			ID:           g.ID,
			Start:        g.Start,
			Length:       g.Length,
			SiteOccupied: g.Site.IsOccupied(),
		})
	}
	return view
}

func strandIDOf(m *MessengerRna) string {
	if m == nil {
		return ""
	}
	return m.ID()
}

func strandView(m *MessengerRna) StrandView {
	sv := StrandView{
		ID:                m.ID(),
		BeingSynthesized:  m.BeingSynthesized(),
		BeingDestroyed:    m.BeingDestroyed(),
		ExistenceStrength: m.ExistenceStrength(),
		Length:            m.TotalLength(),
		RibosomeCount:     m.AttachedRibosomeCount(),
	}
	chain := m.Chain()
	for _, h := range chain.Handles() {
		sv.Points = append(sv.Points, chain.Point(h).Position)
	}
	for i := 0; i < m.Segments().Len(); i++ {
		seg := m.Segments().At(i)
		capacity := seg.Capacity
		if math.IsInf(capacity, 1) {
			capacity = -1
		}
		sv.Segments = append(sv.Segments, SegmentView{
			Kind:            seg.Kind.String(),
			Bounds:          seg.Bounds,
			ContainedLength: seg.ContainedLength(),
			Capacity:        capacity,
			SiteOccupied:    seg.Site.IsOccupied(),
		})
	}
	return sv
}

func biomoleculeView(b *MobileBiomolecule, strandID string) BiomoleculeView {
	return BiomoleculeView{
		ID:       b.ID(),
		Kind:     b.Kind().String(),
		Position: b.Position(),
		State:    b.StateMachine().State().String(),
		StrandID: strandID,
	}
}
