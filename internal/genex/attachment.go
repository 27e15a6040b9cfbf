package genex

// AttachmentSite is a negotiable location plus an occupancy slot. Exactly one
// molecule may hold the slot at a time, whether it is still moving toward the
// site or already physically connected.
type AttachmentSite struct {
	Position Vector2

	attachedMolecule *MobileBiomolecule
}

// IsOccupied reports whether a molecule holds (or is moving toward) the site.
func (s *AttachmentSite) IsOccupied() bool {
	return s.attachedMolecule != nil
}

// Occupant returns the molecule holding the site, or nil.
func (s *AttachmentSite) Occupant() *MobileBiomolecule {
	return s.attachedMolecule
}

func (s *AttachmentSite) attach(m *MobileBiomolecule) {
	s.attachedMolecule = m
}

func (s *AttachmentSite) clear() {
	s.attachedMolecule = nil
}

// PlacementHint marks a spot near the strand where a compatible free-floating
// molecule could usefully attach. The view layer reads hints to show the user
// where to drag things; the simulation activates them when a matching molecule
// is nearby.
type PlacementHint struct {
	Position Vector2
	Kind     BiomoleculeKind
	Active   bool
}

// ActivateIfMatch activates the hint when the candidate molecule's kind
// matches the hint's kind.
func (h *PlacementHint) ActivateIfMatch(kind BiomoleculeKind) {
	if h.Kind == kind {
		h.Active = true
	}
}

func (h *PlacementHint) Deactivate() {
	h.Active = false
}
