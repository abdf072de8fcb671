package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTuningMissingFileUsesDefaults(t *testing.T) {
	got, err := LoadTuning(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), got)
}

func TestLoadTuningOverridesSelectedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	body := `
scoring:
  long_route_km: 80
consolidation:
  max_detour_ratio: 0.25
depots:
  fallback: first-other
  center_lat: 40.4
  center_lon: -3.7
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	got, err := LoadTuning(path)
	require.NoError(t, err)

	assert.Equal(t, 80.0, got.Scoring.LongRouteKm)
	assert.Equal(t, 0.45, got.Scoring.SweepWeight, "untouched field keeps its default")
	assert.Equal(t, 0.25, got.Consolidation.MaxDetourRatio)
	assert.Equal(t, FallbackFirstOther, got.Depots.Fallback)
	require.NotNil(t, got.Depots.CenterLat)
	assert.Equal(t, 40.4, *got.Depots.CenterLat)
}

func TestLoadTuningRejectsUnknownFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("depots:\n  fallback: coin-flip\n"), 0o600))

	_, err := LoadTuning(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coin-flip")
}

func TestGetHelpers(t *testing.T) {
	t.Setenv("DISPATCH_TEST_FLOAT", "2.5")
	t.Setenv("DISPATCH_TEST_BAD", "nope")

	assert.Equal(t, 2.5, GetFloat("DISPATCH_TEST_FLOAT", 1))
	assert.Equal(t, 1.0, GetFloat("DISPATCH_TEST_BAD", 1))
	assert.Equal(t, "fallback", Get("DISPATCH_TEST_UNSET", "fallback"))
}
