package genex

// Gene is a transcribable region of the DNA molecule: a start position where
// the strand spawns and the total length of strand it produces. Each gene has
// its own polymerase attachment site.
type Gene struct {
	ID     string         `json:"id"`
	Start  Vector2        `json:"start"`
	Length float64        `json:"length"`
	Site   AttachmentSite `json:"-"`
}

func NewGene(start Vector2, length float64) *Gene {
	return &Gene{
		ID:     NewRandomID(),
		Start:  start,
		Length: length,
		Site:   AttachmentSite{Position: start},
	}
}

// DnaMolecule is the engine's thin model of the DNA: an ordered set of genes
// supplying spawn positions and transcription lengths. The full double-helix
// rendering lives in the view layer.
type DnaMolecule struct {
	params *Parameters
	genes  []*Gene
}

func NewDnaMolecule(params *Parameters) *DnaMolecule {
	return &DnaMolecule{params: params}
}

func (d *DnaMolecule) AddGene(g *Gene) {
	d.genes = append(d.genes, g)
}

func (d *DnaMolecule) Genes() []*Gene {
	return d.genes
}

// ConsiderProposalFromPolymerase accepts a polymerase's proposal for the
// nearest gene with a free attachment site within connection distance.
// Returns the gene and its site, or nil when no gene can take it.
func (d *DnaMolecule) ConsiderProposalFromPolymerase(p *RnaPolymerase) (*Gene, *AttachmentSite) {
	var best *Gene
	bestDist := d.params.PolymeraseConnectDistance
	for _, g := range d.genes {
		if g.Site.IsOccupied() {
			continue
		}
		dist := g.Site.Position.Distance(p.Position())
		if dist <= bestDist {
			best = g
			bestDist = dist
		}
	}
	if best == nil {
		return nil, nil
	}
	best.Site.attach(&p.MobileBiomolecule)
	return best, &best.Site
}
