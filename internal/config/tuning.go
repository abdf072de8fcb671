package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Destination depot fallback policies for packages without destination coordinates.
const (
	FallbackNearestToCenter = "nearest-to-center"
	FallbackFirstOther      = "first-other"
	FallbackRandom          = "random"
)

// Tuning holds the engine's scoring and sequencing parameters.
// Zero values in a YAML file are replaced by DefaultTuning values.
type Tuning struct {
	Scoring       ScoringTuning       `yaml:"scoring"`
	Consolidation ConsolidationTuning `yaml:"consolidation"`
	Sequencer     SequencerTuning     `yaml:"sequencer"`
	Depots        DepotTuning         `yaml:"depots"`
}

type ScoringTuning struct {
	LongRouteKm        float64 `yaml:"long_route_km"`
	NearHomeKm         float64 `yaml:"near_home_km"`
	ApproachScaleKm    float64 `yaml:"approach_scale_km"`
	SameDepotSweep     float64 `yaml:"same_depot_sweep"`
	NearHomeSweep      float64 `yaml:"near_home_sweep"`
	SweepWeight        float64 `yaml:"sweep_weight"`
	TrunkWeight        float64 `yaml:"trunk_weight"`
	CapacityWeight     float64 `yaml:"capacity_weight"`
	CapacityMultiplier float64 `yaml:"capacity_multiplier"`
}

type ConsolidationTuning struct {
	MaxDetourRatio float64 `yaml:"max_detour_ratio"`
	ScoreNumerator float64 `yaml:"score_numerator"`
	CoveredScore   float64 `yaml:"covered_score"`
}

type SequencerTuning struct {
	MaxExhaustiveStops int `yaml:"max_exhaustive_stops"`
	OrderOffset        int `yaml:"order_offset"`
}

type DepotTuning struct {
	Fallback  string   `yaml:"fallback"`
	CenterLat *float64 `yaml:"center_lat"`
	CenterLon *float64 `yaml:"center_lon"`
	Seed      uint64   `yaml:"seed"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Scoring: ScoringTuning{
			LongRouteKm:        50,
			NearHomeKm:         10,
			ApproachScaleKm:    100,
			SameDepotSweep:     0.7,
			NearHomeSweep:      0.2,
			SweepWeight:        0.45,
			TrunkWeight:        0.40,
			CapacityWeight:     0.15,
			CapacityMultiplier: 5,
		},
		Consolidation: ConsolidationTuning{
			MaxDetourRatio: 0.5,
			ScoreNumerator: 1.3,
			CoveredScore:   2.0,
		},
		Sequencer: SequencerTuning{
			MaxExhaustiveStops: 12,
			OrderOffset:        10000,
		},
		Depots: DepotTuning{
			Fallback: FallbackNearestToCenter,
		},
	}
}

// LoadTuning reads a YAML tuning file on top of DefaultTuning.
// A missing file is not an error.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return Tuning{}, fmt.Errorf("load tuning: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &t); err != nil {
		return Tuning{}, fmt.Errorf("load tuning: parse %q: %w", path, err)
	}

	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("load tuning: %q: %w", path, err)
	}

	return t, nil
}

func (t Tuning) Validate() error {
	s := t.Scoring
	if s.LongRouteKm <= 0 || s.ApproachScaleKm <= 0 {
		return errors.New("scoring distances must be positive")
	}
	if s.SweepWeight < 0 || s.TrunkWeight < 0 || s.CapacityWeight < 0 {
		return errors.New("scoring weights must be non-negative")
	}
	if t.Consolidation.MaxDetourRatio < 0 {
		return errors.New("consolidation max_detour_ratio must be non-negative")
	}
	if t.Sequencer.MaxExhaustiveStops < 1 {
		return errors.New("sequencer max_exhaustive_stops must be at least 1")
	}
	if t.Sequencer.OrderOffset < 1 {
		return errors.New("sequencer order_offset must be positive")
	}

	switch t.Depots.Fallback {
	case FallbackNearestToCenter, FallbackFirstOther, FallbackRandom:
	default:
		return fmt.Errorf("unknown depot fallback %q", t.Depots.Fallback)
	}
	if (t.Depots.CenterLat == nil) != (t.Depots.CenterLon == nil) {
		return errors.New("depots center_lat and center_lon must be set together")
	}

	return nil
}
