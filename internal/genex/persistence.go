package genex

import (
	"encoding/json"
	"fmt"
	"math"
)

// Snapshot is a point-in-time capture of a simulation: strand geometry, gene
// layout, and biomolecule positions. Attachments in flight are deliberately
// not captured; a restored model starts with everything unattached, which is
// the only state the attachment protocol can be re-entered from safely.
type Snapshot struct {
	SimulationID string                `json:"simulation_id"`
	Time         float64               `json:"time"`
	Tick         int64                 `json:"tick"`
	Strands      []StrandSnapshot      `json:"strands"`
	Biomolecules []BiomoleculeSnapshot `json:"biomolecules"`
	Genes        []GeneSnapshot        `json:"genes"`
}

type StrandSnapshot struct {
	ID                string            `json:"id"`
	BeingSynthesized  bool              `json:"being_synthesized"`
	ExistenceStrength float64           `json:"existence_strength"`
	Points            []PointSnapshot   `json:"points"`
	Segments          []SegmentSnapshot `json:"segments"`
}

type PointSnapshot struct {
	Position       Vector2 `json:"position"`
	TargetDistance float64 `json:"target_distance"`
}

type SegmentSnapshot struct {
	Kind   string `json:"kind"`
	Bounds Rect   `json:"bounds"`
	// Capacity is -1 for effectively unlimited (wound) segments.
	Capacity        float64 `json:"capacity"`
	ContainedLength float64 `json:"contained_length"`
}

type BiomoleculeSnapshot struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	Position      Vector2 `json:"position"`
	ChannelLength float64 `json:"channel_length,omitempty"`
}

type GeneSnapshot struct {
	ID     string  `json:"id"`
	Start  Vector2 `json:"start"`
	Length float64 `json:"length"`
}

// snapshotConservationTolerance is looser than the model epsilon because a
// snapshot accumulates the drift of an arbitrarily long run.
const snapshotConservationTolerance = 1e-3

// ValidateSnapshot performs structural checks on a snapshot: non-empty unique
// IDs, known kinds, and per-strand length conservation between the point
// chain and the segment list.
func ValidateSnapshot(snapshot Snapshot) error {
	seenStrands := make(map[string]struct{})
	for i, st := range snapshot.Strands {
		if st.ID == "" {
			return fmt.Errorf("strand at index %d has empty ID", i)
		}
		if _, exists := seenStrands[st.ID]; exists {
			return fmt.Errorf("duplicate strand ID: %s", st.ID)
		}
		seenStrands[st.ID] = struct{}{}

		if len(st.Points) == 0 {
			return fmt.Errorf("strand %s has no points", st.ID)
		}
		if st.Points[0].TargetDistance != 0 {
			return fmt.Errorf("strand %s: leading point must have zero target distance", st.ID)
		}

		chainLength := 0.0
		for _, pt := range st.Points {
			if pt.TargetDistance < 0 {
				return fmt.Errorf("strand %s has a negative target distance", st.ID)
			}
			chainLength += pt.TargetDistance
		}
		segmentLength := 0.0
		for j, seg := range st.Segments {
			if seg.Kind != SegmentFlat.String() && seg.Kind != SegmentSquare.String() {
				return fmt.Errorf("strand %s segment %d has invalid kind: %s", st.ID, j, seg.Kind)
			}
			segmentLength += seg.ContainedLength
		}
		if math.Abs(chainLength-segmentLength) > snapshotConservationTolerance {
			return fmt.Errorf("strand %s violates length conservation: chain=%g segments=%g",
				st.ID, chainLength, segmentLength)
		}
	}

	seenMolecules := make(map[string]struct{})
	for i, b := range snapshot.Biomolecules {
		if b.ID == "" {
			return fmt.Errorf("biomolecule at index %d has empty ID", i)
		}
		if _, exists := seenMolecules[b.ID]; exists {
			return fmt.Errorf("duplicate biomolecule ID: %s", b.ID)
		}
		seenMolecules[b.ID] = struct{}{}
		switch b.Kind {
		case KindRibosome.String(), KindPolymerase.String(), KindDestroyer.String():
		default:
			return fmt.Errorf("biomolecule %s has invalid kind: %s", b.ID, b.Kind)
		}
	}
	return nil
}

// EncodeSnapshotJSON encodes a snapshot to JSON.
func EncodeSnapshotJSON(snapshot Snapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotJSON decodes and validates a snapshot from JSON.
func DecodeSnapshotJSON(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := ValidateSnapshot(snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	return snapshot, nil
}

// Snapshot captures the current state of the simulation.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SimulationID: s.id,
		Time:         s.simTime,
		Tick:         s.tick,
	}
	for _, m := range s.strands {
		snap.Strands = append(snap.Strands, snapshotStrand(m))
	}
	for _, r := range s.ribosomes {
		snap.Biomolecules = append(snap.Biomolecules, BiomoleculeSnapshot{
			ID: r.ID(), Kind: r.Kind().String(), Position: r.Position(), ChannelLength: r.ChannelLength,
		})
	}
	for _, p := range s.polymerases {
		snap.Biomolecules = append(snap.Biomolecules, BiomoleculeSnapshot{
			ID: p.ID(), Kind: p.Kind().String(), Position: p.Position(),
		})
	}
	for _, d := range s.destroyers {
		snap.Biomolecules = append(snap.Biomolecules, BiomoleculeSnapshot{
			ID: d.ID(), Kind: d.Kind().String(), Position: d.Position(), ChannelLength: d.ChannelLength,
		})
	}
	for _, g := range s.dna.Genes() {
		snap.Genes = append(snap.Genes, GeneSnapshot{ID: g.ID, Start: g.Start, Length: g.Length})
	}
	return snap
}

func snapshotStrand(m *MessengerRna) StrandSnapshot {
	st := StrandSnapshot{
		ID:                m.ID(),
		BeingSynthesized:  m.BeingSynthesized(),
		ExistenceStrength: m.ExistenceStrength(),
	}
	chain := m.Chain()
	for _, h := range chain.Handles() {
		p := chain.Point(h)
		st.Points = append(st.Points, PointSnapshot{
			Position:       p.Position,
			TargetDistance: p.TargetDistanceToPrev,
		})
	}
	for i := 0; i < m.Segments().Len(); i++ {
		seg := m.Segments().At(i)
		capacity := seg.Capacity
		if math.IsInf(capacity, 1) {
			capacity = -1
		}
		st.Segments = append(st.Segments, SegmentSnapshot{
			Kind:            seg.Kind.String(),
			Bounds:          seg.Bounds,
			Capacity:        capacity,
			ContainedLength: seg.ContainedLength(),
		})
	}
	return st
}

// ApplySnapshot replaces the simulation's contents with the snapshot's.
// Strand geometry, genes, and biomolecule positions are restored; all
// attachments come back released.
func (s *Simulation) ApplySnapshot(snapshot Snapshot) error {
	if err := ValidateSnapshot(snapshot); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.SimulationID != "" {
		s.id = snapshot.SimulationID
	}
	s.simTime = snapshot.Time
	s.tick = snapshot.Tick
	s.strands = nil
	s.ribosomes = nil
	s.polymerases = nil
	s.destroyers = nil
	s.events = nil
	s.dna = NewDnaMolecule(s.params)

	for _, g := range snapshot.Genes {
		gene := NewGene(g.Start, g.Length)
		if g.ID != "" {
			gene.ID = g.ID
		}
		s.dna.AddGene(gene)
	}
	for _, st := range snapshot.Strands {
		s.strands = append(s.strands, restoreStrand(s.params, s.logger, st))
	}
	for _, b := range snapshot.Biomolecules {
		switch b.Kind {
		case KindRibosome.String():
			r := NewRibosome(s.params, s.logger, s.rng, b.Position, b.ChannelLength)
			r.id = b.ID
			s.ribosomes = append(s.ribosomes, r)
		case KindPolymerase.String():
			p := NewRnaPolymerase(s.params, s.logger, s.rng, b.Position)
			p.id = b.ID
			s.polymerases = append(s.polymerases, p)
		case KindDestroyer.String():
			d := NewMessengerRnaDestroyer(s.params, s.logger, s.rng, b.Position, b.ChannelLength)
			d.id = b.ID
			s.destroyers = append(s.destroyers, d)
		}
	}
	return nil
}

func restoreStrand(params *Parameters, logger Logger, st StrandSnapshot) *MessengerRna {
	m := NewMessengerRna(params, logger, st.Points[0].Position)
	m.id = st.ID
	m.existenceStrength = st.ExistenceStrength
	m.beingSynthesized = st.BeingSynthesized
	if !st.BeingSynthesized && params.FadeInsteadOfTranslating {
		m.fading = true
	}

	for _, pt := range st.Points[1:] {
		h := m.chain.AppendToTail(pt.TargetDistance)
		m.chain.Point(h).Position = pt.Position
	}

	m.segments = &SegmentList{}
	for _, seg := range st.Segments {
		var restored *ShapeSegment
		if seg.Kind == SegmentSquare.String() {
			restored = newSquareSegment(params, seg.Bounds.LowerLeft())
		} else {
			restored = newFlatSegment(params, seg.Bounds.LowerLeft(), params.LeaderLength)
		}
		if seg.Capacity >= 0 {
			restored.Capacity = seg.Capacity
		}
		restored.Bounds = seg.Bounds
		m.segments.Append(restored)
	}
	m.windPointsThroughSegments()
	return m
}
