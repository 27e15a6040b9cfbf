package genex

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Parameters holds the externally supplied model constants that govern strand
// geometry, attachment negotiation, and per-tick rates. They are normally
// loaded from a JSON config file; DefaultParameters returns values tuned for
// the standard cell scale.
type Parameters struct {
	// InterPointDistance is the rest spacing between consecutive shape-defining
	// points on a strand.
	InterPointDistance float64 `json:"inter_point_distance"`

	// LeaderLength is the fixed length of strand that protrudes ahead of any
	// channel engagement, enabling initial attachment.
	LeaderLength float64 `json:"leader_length"`

	// RibosomeConnectDistance is the maximum distance at which a ribosome's
	// attachment proposal can be accepted.
	RibosomeConnectDistance float64 `json:"ribosome_connect_distance"`

	// DestroyerConnectDistance is the equivalent for mRNA destroyers.
	DestroyerConnectDistance float64 `json:"destroyer_connect_distance"`

	// PolymeraseConnectDistance is the equivalent for polymerase proposing to
	// a gene on the DNA.
	PolymeraseConnectDistance float64 `json:"polymerase_connect_distance"`

	// FloatComparisonFactor is the epsilon used for all near-zero length
	// comparisons, tolerating drift from repeated incremental updates.
	FloatComparisonFactor float64 `json:"float_comparison_factor"`

	// WoundPackingFactor relates contained length to the area of a wound
	// (square) segment: area = length * InterPointDistance / WoundPackingFactor.
	WoundPackingFactor float64 `json:"wound_packing_factor"`

	// RelaxationIterations bounds the spring relaxation pass run after each
	// structural change to the segment list.
	RelaxationIterations int     `json:"relaxation_iterations"`
	RelaxationStiffness  float64 `json:"relaxation_stiffness"`
	RelaxationDamping    float64 `json:"relaxation_damping"`
	RelaxationTimeStep   float64 `json:"relaxation_time_step"`

	// Off-rates: per-second probability rates of spontaneous detachment while
	// attached. Zero disables spontaneous detachment.
	RibosomeDetachRate   float64 `json:"ribosome_detach_rate"`
	PolymeraseDetachRate float64 `json:"polymerase_detach_rate"`

	// DetachDuration is how long a detaching molecule drifts before it becomes
	// available again.
	DetachDuration float64 `json:"detach_duration"`

	// ArrivalDistance is how close a moving-to-attach molecule must get to its
	// target site before it counts as physically connected.
	ArrivalDistance float64 `json:"arrival_distance"`

	// AttachMoveSpeed is the speed at which a molecule moves toward an
	// accepted attachment site.
	AttachMoveSpeed float64 `json:"attach_move_speed"`

	// WanderSpeed is the speed of unattached random-walk motion.
	WanderSpeed float64 `json:"wander_speed"`

	// Per-second advancement rates for the three strand-consuming processes.
	TranscriptionRate float64 `json:"transcription_rate"`
	TranslationRate   float64 `json:"translation_rate"`
	DestructionRate   float64 `json:"destruction_rate"`

	// Default channel lengths used when a biomolecule is created without an
	// explicit one.
	RibosomeChannelLength  float64 `json:"ribosome_channel_length"`
	DestroyerChannelLength float64 `json:"destroyer_channel_length"`

	// FadeInsteadOfTranslating makes a fully synthesized, unattached strand
	// fade away rather than wait for translation (used on screens where
	// translation never occurs).
	FadeInsteadOfTranslating bool    `json:"fade_instead_of_translating"`
	FadeRate                 float64 `json:"fade_rate"`

	// PolymeraseRecycleMode sends detached polymerase to a return zone before
	// it becomes available again.
	PolymeraseRecycleMode bool `json:"polymerase_recycle_mode"`
	PolymeraseReturnZone  Rect `json:"polymerase_return_zone"`

	// MotionBounds confine random-walk motion.
	MotionBounds Rect `json:"motion_bounds"`
}

// DefaultParameters returns the standard parameter set.
func DefaultParameters() *Parameters {
	return &Parameters{
		InterPointDistance:        50,
		LeaderLength:              200,
		RibosomeConnectDistance:   400,
		DestroyerConnectDistance:  400,
		PolymeraseConnectDistance: 500,
		FloatComparisonFactor:     1e-7,
		WoundPackingFactor:        1.0,
		RelaxationIterations:      20,
		RelaxationStiffness:       8.0,
		RelaxationDamping:         0.75,
		RelaxationTimeStep:        0.05,
		RibosomeDetachRate:        0,
		PolymeraseDetachRate:      0.5,
		DetachDuration:            0.5,
		ArrivalDistance:           10,
		AttachMoveSpeed:           400,
		WanderSpeed:               150,
		TranscriptionRate:         400,
		TranslationRate:           300,
		DestructionRate:           300,
		RibosomeChannelLength:     200,
		DestroyerChannelLength:    250,
		FadeInsteadOfTranslating:  false,
		FadeRate:                  0.5,
		PolymeraseRecycleMode:     false,
		PolymeraseReturnZone:      NewRect(-3000, -2000, 1000, 1000),
		MotionBounds:              NewRect(-4000, -3000, 8000, 6000),
	}
}

// woundSideForLength converts a contained length into the side length of the
// square that represents it when wound.
func (p *Parameters) woundSideForLength(length float64) float64 {
	if length <= 0 {
		return 0
	}
	return math.Sqrt(length * p.InterPointDistance / p.WoundPackingFactor)
}

// woundLengthForSide is the inverse conversion, deriving contained length from
// the bounding-box side of a wound segment.
func (p *Parameters) woundLengthForSide(side float64) float64 {
	return side * side * p.WoundPackingFactor / p.InterPointDistance
}

// ValidationError collects multiple validation issues
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid parameters: unknown validation error"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0]
	}
	return "parameter validation errors: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// ValidateParameters performs comprehensive validation of a parameter set.
func ValidateParameters(p *Parameters) error {
	err := &ValidationError{}

	if p == nil {
		err.Add("parameters are required")
		return err
	}

	requirePositive := []struct {
		name  string
		value float64
	}{
		{"inter_point_distance", p.InterPointDistance},
		{"leader_length", p.LeaderLength},
		{"ribosome_connect_distance", p.RibosomeConnectDistance},
		{"destroyer_connect_distance", p.DestroyerConnectDistance},
		{"polymerase_connect_distance", p.PolymeraseConnectDistance},
		{"wound_packing_factor", p.WoundPackingFactor},
		{"arrival_distance", p.ArrivalDistance},
		{"attach_move_speed", p.AttachMoveSpeed},
		{"transcription_rate", p.TranscriptionRate},
		{"translation_rate", p.TranslationRate},
		{"destruction_rate", p.DestructionRate},
		{"ribosome_channel_length", p.RibosomeChannelLength},
		{"destroyer_channel_length", p.DestroyerChannelLength},
	}
	for _, req := range requirePositive {
		if req.value <= 0 {
			err.Add(fmt.Sprintf("%s must be positive, got %g", req.name, req.value))
		}
	}

	if p.FloatComparisonFactor <= 0 || p.FloatComparisonFactor >= 1 {
		err.Add(fmt.Sprintf("float_comparison_factor must be in (0, 1), got %g", p.FloatComparisonFactor))
	}
	if p.RelaxationIterations < 1 {
		err.Add(fmt.Sprintf("relaxation_iterations must be at least 1, got %d", p.RelaxationIterations))
	}
	if p.RelaxationStiffness <= 0 {
		err.Add(fmt.Sprintf("relaxation_stiffness must be positive, got %g", p.RelaxationStiffness))
	}
	if p.RelaxationDamping < 0 || p.RelaxationDamping >= 1 {
		err.Add(fmt.Sprintf("relaxation_damping must be in [0, 1), got %g", p.RelaxationDamping))
	}
	if p.RelaxationTimeStep <= 0 {
		err.Add(fmt.Sprintf("relaxation_time_step must be positive, got %g", p.RelaxationTimeStep))
	}
	if p.RibosomeDetachRate < 0 {
		err.Add(fmt.Sprintf("ribosome_detach_rate must be non-negative, got %g", p.RibosomeDetachRate))
	}
	if p.PolymeraseDetachRate < 0 {
		err.Add(fmt.Sprintf("polymerase_detach_rate must be non-negative, got %g", p.PolymeraseDetachRate))
	}
	if p.DetachDuration < 0 {
		err.Add(fmt.Sprintf("detach_duration must be non-negative, got %g", p.DetachDuration))
	}
	if p.WanderSpeed < 0 {
		err.Add(fmt.Sprintf("wander_speed must be non-negative, got %g", p.WanderSpeed))
	}
	if p.FadeRate < 0 {
		err.Add(fmt.Sprintf("fade_rate must be non-negative, got %g", p.FadeRate))
	}
	if p.MotionBounds.Width() <= 0 || p.MotionBounds.Height() <= 0 {
		err.Add("motion_bounds must have positive width and height")
	}
	if p.PolymeraseRecycleMode && (p.PolymeraseReturnZone.Width() <= 0 || p.PolymeraseReturnZone.Height() <= 0) {
		err.Add("polymerase_return_zone must have positive width and height when recycle mode is enabled")
	}

	if err.HasIssues() {
		return err
	}
	return nil
}

// ParseParameters decodes and validates a JSON-encoded parameter set.
func ParseParameters(data []byte) (*Parameters, error) {
	var p Parameters
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cannot parse parameters: %w", err)
	}
	if err := ValidateParameters(&p); err != nil {
		return nil, err
	}
	return &p, nil
}
