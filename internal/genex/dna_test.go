package genex

import "testing"

func TestDnaMolecule_PolymeraseProposal(t *testing.T) {
	params := DefaultParameters()
	rng := newTestRng()

	t.Run("nearest free gene wins", func(t *testing.T) {
		dna := NewDnaMolecule(params)
		far := NewGene(NewVector2(400, 0), 600)
		near := NewGene(NewVector2(100, 0), 600)
		dna.AddGene(far)
		dna.AddGene(near)

		p := NewRnaPolymerase(params, nil, rng, NewVector2(0, 0))
		g, site := dna.ConsiderProposalFromPolymerase(p)
		if g != near {
			t.Fatal("Expected the nearest gene to accept the proposal")
		}
		if site == nil || site.Occupant() != &p.MobileBiomolecule {
			t.Error("Accepted site should be held by the polymerase")
		}
	})

	t.Run("occupied gene is skipped", func(t *testing.T) {
		dna := NewDnaMolecule(params)
		near := NewGene(NewVector2(100, 0), 600)
		far := NewGene(NewVector2(400, 0), 600)
		dna.AddGene(near)
		dna.AddGene(far)

		p1 := NewRnaPolymerase(params, nil, rng, NewVector2(0, 0))
		p2 := NewRnaPolymerase(params, nil, rng, NewVector2(0, 0))
		if g, _ := dna.ConsiderProposalFromPolymerase(p1); g != near {
			t.Fatal("Setup: first polymerase should take the near gene")
		}
		g, _ := dna.ConsiderProposalFromPolymerase(p2)
		if g != far {
			t.Error("Second polymerase should fall through to the free gene")
		}
	})

	t.Run("out of range gives nil", func(t *testing.T) {
		dna := NewDnaMolecule(params)
		dna.AddGene(NewGene(NewVector2(10000, 0), 600))

		p := NewRnaPolymerase(params, nil, rng, NewVector2(0, 0))
		if g, site := dna.ConsiderProposalFromPolymerase(p); g != nil || site != nil {
			t.Error("Expected no acceptance beyond connect distance")
		}
	})
}
