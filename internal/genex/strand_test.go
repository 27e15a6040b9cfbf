package genex

import (
	"math"
	"math/rand"
	"testing"
)

func newTestRng() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// newReleasedStrand grows a strand to the given length in polymerase-sized
// increments and releases it from synthesis.
func newReleasedStrand(t *testing.T, params *Parameters, length float64) *MessengerRna {
	t.Helper()
	m := NewMessengerRna(params, nil, Vector2{})
	for grown := 0.0; grown < length; grown += 40 {
		m.AddLength(math.Min(40, length-grown))
	}
	m.ReleaseFromPolymerase()
	if !almostEqual(m.TotalLength(), length, 1e-6) {
		t.Fatalf("Fixture strand length %g, expected %g", m.TotalLength(), length)
	}
	return m
}

func checkConservation(t *testing.T, m *MessengerRna, context string) {
	t.Helper()
	chainLen := m.chain.TotalTargetLength()
	segLen := m.segments.TotalLength()
	if !almostEqual(chainLen, segLen, 1e-6) {
		t.Fatalf("%s: chain length %g disagrees with segment length %g", context, chainLen, segLen)
	}
}

func TestMessengerRna_GrowthConservesLength(t *testing.T) {
	params := DefaultParameters()
	m := NewMessengerRna(params, nil, NewVector2(100, 200))

	total := 0.0
	for i := 0; i < 20; i++ {
		m.AddLength(35)
		total += 35
		checkConservation(t, m, "after growth")
		if !almostEqual(m.TotalLength(), total, 1e-6) {
			t.Fatalf("Expected total %g, got %g", total, m.TotalLength())
		}
	}
}

func TestMessengerRna_GrowthOverflowsLeaderIntoBlob(t *testing.T) {
	params := DefaultParameters()
	m := newReleasedStrand(t, params, 600)

	if m.segments.Len() != 2 {
		t.Fatalf("Expected leader plus blob, got %d segments", m.segments.Len())
	}
	leader, blob := m.segments.At(0), m.segments.At(1)
	if leader.Kind != SegmentFlat || blob.Kind != SegmentSquare {
		t.Fatalf("Expected flat then square, got %s then %s", leader.Kind, blob.Kind)
	}
	if !almostEqual(leader.ContainedLength(), params.LeaderLength, 1e-6) {
		t.Errorf("Expected full leader %g, got %g", params.LeaderLength, leader.ContainedLength())
	}
	if !almostEqual(blob.ContainedLength(), 400, 1e-6) {
		t.Errorf("Expected 400 wound, got %g", blob.ContainedLength())
	}
}

func TestMessengerRna_AddLengthAfterReleaseIsIgnored(t *testing.T) {
	params := DefaultParameters()
	m := newReleasedStrand(t, params, 200)

	m.AddLength(100)

	if !almostEqual(m.TotalLength(), 200, 1e-6) {
		t.Errorf("Expected length unchanged at 200, got %g", m.TotalLength())
	}
}

func TestMessengerRna_RedundantReleaseIsIgnored(t *testing.T) {
	params := DefaultParameters()
	m := newReleasedStrand(t, params, 200)
	m.ReleaseFromPolymerase() // must not panic or change state
	if m.BeingSynthesized() {
		t.Error("Strand should stay released")
	}
}

func TestMessengerRna_RibosomeProposals(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()

	tests := []struct {
		name       string
		setup      func(t *testing.T, m *MessengerRna)
		ribosomeAt Vector2
		wantOK     bool
	}{
		{
			name:       "accepted within connect distance",
			setup:      func(t *testing.T, m *MessengerRna) {},
			ribosomeAt: NewVector2(100, 0),
			wantOK:     true,
		},
		{
			name:       "rejected beyond connect distance",
			setup:      func(t *testing.T, m *MessengerRna) {},
			ribosomeAt: NewVector2(1000, 0),
			wantOK:     false,
		},
		{
			name: "rejected while the site is occupied",
			setup: func(t *testing.T, m *MessengerRna) {
				other := NewRibosome(params, nil, rng, NewVector2(10, 0), 0)
				if m.ConsiderProposalFromRibosome(other) == nil {
					t.Fatal("Setup proposal should have been accepted")
				}
			},
			ribosomeAt: NewVector2(100, 0),
			wantOK:     false,
		},
		{
			name: "rejected while a destroyer has claimed the strand",
			setup: func(t *testing.T, m *MessengerRna) {
				d := NewMessengerRnaDestroyer(params, nil, rng, NewVector2(10, 0), 0)
				if m.ConsiderProposalFromDestroyer(d) == nil {
					t.Fatal("Setup destroyer claim should have been accepted")
				}
			},
			ribosomeAt: NewVector2(100, 0),
			wantOK:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newReleasedStrand(t, params, 600)
			tt.setup(t, m)
			r := NewRibosome(params, nil, rng, tt.ribosomeAt, 0)
			site := m.ConsiderProposalFromRibosome(r)
			if (site != nil) != tt.wantOK {
				t.Errorf("Proposal accepted=%v, expected %v", site != nil, tt.wantOK)
			}
			if site != nil && site.Occupant() != &r.MobileBiomolecule {
				t.Error("Accepted site should be held by the proposing ribosome")
			}
		})
	}
}

func TestMessengerRna_RedundantRibosomeProposalRejected(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()
	m := newReleasedStrand(t, params, 600)
	r := NewRibosome(params, nil, rng, NewVector2(10, 0), 0)

	if m.ConsiderProposalFromRibosome(r) == nil {
		t.Fatal("First proposal should be accepted")
	}
	if m.ConsiderProposalFromRibosome(r) != nil {
		t.Error("Second proposal from the same ribosome must be rejected")
	}
}

func TestMessengerRna_DestroyerProposals(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()

	t.Run("rejected while being synthesized", func(t *testing.T) {
		m := NewMessengerRna(params, nil, Vector2{})
		m.AddLength(100)
		d := NewMessengerRnaDestroyer(params, nil, rng, NewVector2(10, 0), 0)
		if m.ConsiderProposalFromDestroyer(d) != nil {
			t.Error("Proposal must be rejected while synthesis is underway")
		}
	})

	t.Run("accepted after release, exclusive", func(t *testing.T) {
		m := newReleasedStrand(t, params, 600)
		d1 := NewMessengerRnaDestroyer(params, nil, rng, NewVector2(10, 0), 0)
		d2 := NewMessengerRnaDestroyer(params, nil, rng, NewVector2(20, 0), 0)

		if m.ConsiderProposalFromDestroyer(d1) == nil {
			t.Fatal("First destroyer should claim the strand")
		}
		if !m.BeingDestroyed() {
			t.Error("Strand should report being destroyed after the claim")
		}
		if m.ConsiderProposalFromDestroyer(d2) != nil {
			t.Error("Second destroyer must be rejected")
		}
	})

	t.Run("rejected while a ribosome occupies the leading site", func(t *testing.T) {
		m := newReleasedStrand(t, params, 600)
		r := NewRibosome(params, nil, rng, NewVector2(10, 0), 0)
		if m.ConsiderProposalFromRibosome(r) == nil {
			t.Fatal("Ribosome proposal should be accepted")
		}
		d := NewMessengerRnaDestroyer(params, nil, rng, NewVector2(10, 0), 0)
		if m.ConsiderProposalFromDestroyer(d) != nil {
			t.Error("Destroyer must not claim an occupied leading site")
		}
	})
}

func TestMessengerRna_TranslationLifecycle(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()
	m := newReleasedStrand(t, params, 600)
	r := NewRibosome(params, nil, rng, NewVector2(50, 0), 200)

	site := m.ConsiderProposalFromRibosome(r)
	if site == nil {
		t.Fatal("Proposal should be accepted")
	}
	r.beginAttach(m, site)
	m.InitiateTranslation(r)

	if got := m.segments.First().Capacity; got != r.ChannelLength+params.LeaderLength {
		t.Fatalf("Expected channel capacity %g, got %g", r.ChannelLength+params.LeaderLength, got)
	}

	lastProportion := -1.0
	completed := false
	for i := 0; i < 200; i++ {
		if !completed {
			p := m.ProportionTranslated(r)
			if p < lastProportion-1e-9 {
				t.Fatalf("Iteration %d: proportion regressed from %g to %g", i, lastProportion, p)
			}
			lastProportion = p
		}
		completed = m.AdvanceTranslation(r, 30)
		checkConservation(t, m, "during translation")
		if !almostEqual(m.TotalLength(), 600, 1e-6) {
			t.Fatalf("Iteration %d: length %g not conserved", i, m.TotalLength())
		}
		if completed {
			break
		}
	}
	if !completed {
		t.Fatal("Translation never completed")
	}

	m.ReleaseFromRibosome(r)
	if m.AttachedRibosomeCount() != 0 {
		t.Error("Expected no attached ribosomes after release")
	}
	if m.Gone() {
		t.Error("A translated strand is not gone")
	}
}

func TestMessengerRna_OversizedAdvanceConservesLength(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()
	m := newReleasedStrand(t, params, 600)
	r := NewRibosome(params, nil, rng, NewVector2(50, 0), 200)

	site := m.ConsiderProposalFromRibosome(r)
	if site == nil {
		t.Fatal("Proposal should be accepted")
	}
	r.beginAttach(m, site)
	m.InitiateTranslation(r)

	// A single advance longer than the whole strand drains the channel in one
	// step; it must not grow the strand past what was actually there.
	completed := m.AdvanceTranslation(r, 900)
	if !completed {
		t.Fatal("Expected oversized advance to complete translation")
	}
	checkConservation(t, m, "after oversized advance")
	if !almostEqual(m.TotalLength(), 600, 1e-6) {
		t.Fatalf("Length %g not conserved by oversized advance", m.TotalLength())
	}
	if m.segments.First().Site.IsOccupied() {
		t.Error("Expected the spliced leader's site to be free")
	}
}

func TestMessengerRna_SplicedLeaderAdmitsSecondRibosome(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()
	m := newReleasedStrand(t, params, 600)
	r1 := NewRibosome(params, nil, rng, NewVector2(50, 0), 200)

	site := m.ConsiderProposalFromRibosome(r1)
	if site == nil {
		t.Fatal("First proposal should be accepted")
	}
	m.InitiateTranslation(r1)
	channel := m.ribosomeSegments[r1]

	for i := 0; i < 10; i++ {
		m.AdvanceTranslation(r1, 30)
	}

	leading := m.segments.First()
	if leading == channel {
		t.Fatal("Expected a fresh leader spliced ahead of the busy channel")
	}
	if leading.Site.IsOccupied() {
		t.Fatal("Fresh leader site should be free")
	}

	r2 := NewRibosome(params, nil, rng, m.Position(), 200)
	site2 := m.ConsiderProposalFromRibosome(r2)
	if site2 == nil {
		t.Fatal("Second ribosome should attach to the spliced leader")
	}
	if m.ribosomeSegments[r2] != leading {
		t.Error("Second ribosome should map to the leading segment")
	}
	if m.AttachedRibosomeCount() != 2 {
		t.Errorf("Expected 2 attached ribosomes, got %d", m.AttachedRibosomeCount())
	}
}

func TestMessengerRna_ProportionTranslatedClampsAtZero(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()
	m := newReleasedStrand(t, params, 600)
	// Channel twice the leader: at attachment the entrance offset exceeds the
	// contained leader length, which must clamp to zero rather than go negative.
	r := NewRibosome(params, nil, rng, NewVector2(10, 0), 500)

	if m.ConsiderProposalFromRibosome(r) == nil {
		t.Fatal("Proposal should be accepted")
	}
	if got := m.ProportionTranslated(r); got != 0 {
		t.Errorf("Expected proportion clamped to 0, got %g", got)
	}
}

func TestMessengerRna_ProportionTranslatedZeroLengthStrand(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()
	m := NewMessengerRna(params, nil, Vector2{})
	m.ReleaseFromPolymerase()
	r := NewRibosome(params, nil, rng, Vector2{}, 200)

	if m.ConsiderProposalFromRibosome(r) == nil {
		t.Fatal("Proposal should be accepted")
	}
	if got := m.ProportionTranslated(r); got != 1 {
		t.Errorf("Expected proportion 1 for a zero-length strand, got %g", got)
	}
}

func TestMessengerRna_DestructionLifecycle(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()
	m := newReleasedStrand(t, params, 600)
	d := NewMessengerRnaDestroyer(params, nil, rng, NewVector2(10, 0), 250)

	site := m.ConsiderProposalFromDestroyer(d)
	if site == nil {
		t.Fatal("Claim should be accepted")
	}
	d.beginAttach(m, site)
	m.InitiateDestruction(d)

	remaining := 600.0
	completed := false
	for i := 0; i < 100; i++ {
		completed = m.AdvanceDestruction(40)
		remaining -= 40
		if remaining < 0 {
			remaining = 0
		}
		if !almostEqual(m.TotalLength(), remaining, 1e-6) {
			t.Fatalf("Iteration %d: length %g, expected %g", i, m.TotalLength(), remaining)
		}
		checkConservation(t, m, "during destruction")
		if completed {
			break
		}
	}
	if !completed {
		t.Fatal("Destruction never completed")
	}
	if !m.Gone() {
		t.Error("Fully destroyed strand must report gone")
	}
	if m.chain.Len() != 1 {
		t.Errorf("Expected bare head after destruction, got %d points", m.chain.Len())
	}
}

func TestMessengerRna_AbortDestruction(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()

	t.Run("before connection", func(t *testing.T) {
		m := newReleasedStrand(t, params, 600)
		d := NewMessengerRnaDestroyer(params, nil, rng, NewVector2(10, 0), 0)
		site := m.ConsiderProposalFromDestroyer(d)
		if site == nil {
			t.Fatal("Claim should be accepted")
		}
		d.beginAttach(m, site)

		m.AbortDestruction()

		if m.BeingDestroyed() {
			t.Error("Abort should clear the destroyer claim")
		}
		if site.IsOccupied() {
			t.Error("Abort should free the attachment site")
		}
		if d.Strand() != nil {
			t.Error("Abort should clear the destroyer's strand reference")
		}
		if !d.StateMachine().IsAvailable() {
			t.Error("Aborted destroyer must be immediately available")
		}

		// The strand is open for business again.
		r := NewRibosome(params, nil, rng, NewVector2(10, 0), 0)
		if m.ConsiderProposalFromRibosome(r) == nil {
			t.Error("Strand should accept proposals after an abort")
		}
	})

	t.Run("after connection is ignored", func(t *testing.T) {
		m := newReleasedStrand(t, params, 600)
		d := NewMessengerRnaDestroyer(params, nil, rng, NewVector2(10, 0), 0)
		site := m.ConsiderProposalFromDestroyer(d)
		d.beginAttach(m, site)
		m.InitiateDestruction(d)

		m.AbortDestruction()

		if !m.BeingDestroyed() {
			t.Error("Abort after physical connection must be ignored")
		}
	})

	t.Run("with no claim is ignored", func(t *testing.T) {
		m := newReleasedStrand(t, params, 600)
		m.AbortDestruction() // must not panic
		if m.BeingDestroyed() {
			t.Error("Strand without a claim stays unclaimed")
		}
	})
}

func TestMessengerRna_FadeMode(t *testing.T) {
	params := DefaultParameters()
	params.FadeInsteadOfTranslating = true
	params.FadeRate = 0.5
	rng := newTestRng()

	m := NewMessengerRna(params, nil, Vector2{})
	m.AddLength(100)
	m.ReleaseFromPolymerase()

	m.Step(1.0, rng)
	if !almostEqual(m.ExistenceStrength(), 0.5, 1e-9) {
		t.Errorf("Expected existence strength 0.5, got %g", m.ExistenceStrength())
	}
	if m.Gone() {
		t.Error("Half-faded strand is not gone yet")
	}

	m.Step(1.0, rng)
	if m.ExistenceStrength() != 0 {
		t.Errorf("Expected existence strength clamped to 0, got %g", m.ExistenceStrength())
	}
	if !m.Gone() {
		t.Error("Fully faded strand must report gone")
	}
}

func TestMessengerRna_WanderEligibility(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()

	t.Run("released free strand wanders", func(t *testing.T) {
		m := newReleasedStrand(t, params, 200)
		for i := 0; i < 20; i++ {
			m.Step(1.0, rng)
		}
		if m.Position() == (Vector2{}) {
			t.Error("Expected the free strand to drift from the origin")
		}
		if !params.MotionBounds.Contains(m.Position()) {
			t.Error("Wander must stay inside the motion bounds")
		}
	})

	t.Run("strand under synthesis stays put", func(t *testing.T) {
		m := NewMessengerRna(params, nil, Vector2{})
		m.AddLength(100)
		for i := 0; i < 20; i++ {
			m.Step(1.0, rng)
		}
		if m.Position() != (Vector2{}) {
			t.Error("Synthesizing strand must not wander")
		}
	})

	t.Run("strand with attached ribosome stays put", func(t *testing.T) {
		m := newReleasedStrand(t, params, 600)
		r := NewRibosome(params, nil, rng, NewVector2(10, 0), 0)
		if m.ConsiderProposalFromRibosome(r) == nil {
			t.Fatal("Proposal should be accepted")
		}
		before := m.Position()
		for i := 0; i < 20; i++ {
			m.Step(1.0, rng)
		}
		if m.Position() != before {
			t.Error("Claimed strand must not wander")
		}
	})
}

func TestMessengerRna_TranslateMovesEverything(t *testing.T) {
	params := DefaultParameters()
	m := newReleasedStrand(t, params, 600)
	offset := NewVector2(123, -77)

	headBefore := m.chain.Point(m.chain.Head()).Position
	segBefore := m.segments.First().Bounds.LowerLeft()
	siteBefore := m.segments.First().Site.Position

	m.Translate(offset)

	if got := m.chain.Point(m.chain.Head()).Position; got != headBefore.Add(offset) {
		t.Error("Chain points did not move with the strand")
	}
	if got := m.segments.First().Bounds.LowerLeft(); got != segBefore.Add(offset) {
		t.Error("Segment bounds did not move with the strand")
	}
	if got := m.segments.First().Site.Position; got != siteBefore.Add(offset) {
		t.Error("Attachment sites did not move with the strand")
	}
}

func TestMessengerRna_PlacementHints(t *testing.T) {
	params := DefaultParameters()

	m := NewMessengerRna(params, nil, Vector2{})
	m.AddLength(100)

	// While synthesis is underway only the ribosome hint may light up.
	m.ActivateHints(KindDestroyer)
	if m.DestroyerHint().Active {
		t.Error("Destroyer hint must stay off during synthesis")
	}
	m.ActivateHints(KindRibosome)
	if !m.RibosomeHint().Active {
		t.Error("Ribosome hint should activate for a matching candidate")
	}

	m.DeactivateHints()
	if m.RibosomeHint().Active || m.DestroyerHint().Active {
		t.Error("DeactivateHints must clear both hints")
	}

	m.ReleaseFromPolymerase()
	m.ActivateHints(KindDestroyer)
	if !m.DestroyerHint().Active {
		t.Error("Destroyer hint should activate once synthesis is done")
	}
}
