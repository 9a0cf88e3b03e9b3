package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedcap/lendflow/internal/scoring"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, scoring.DefaultRiskBands(), cfg.Bands,
		"embedded defaults must match the in-code band defaults")
	assert.Equal(t, 40.0, cfg.Policy.ScoreFloor)
	assert.Equal(t, 2, cfg.Policy.NSFLimit)
	assert.Equal(t, 0.60, cfg.Policy.DebtToIncomeCeil)
	assert.Equal(t, 75.0, cfg.Policy.ApproveScore)
	assert.Equal(t, 60.0, cfg.Routing.ImpactSkipThreshold)
	assert.Equal(t, 10, cfg.Timeout.StageSeconds)
	assert.Equal(t, 60, cfg.Timeout.RunSeconds)
}

func TestLoadBytes_Overrides(t *testing.T) {
	cfg, err := LoadBytes([]byte(`
config: policy: approveScore: 80
config: routing: impactSkipThreshold: 55
`))
	require.NoError(t, err)

	assert.Equal(t, 80.0, cfg.Policy.ApproveScore)
	assert.Equal(t, 55.0, cfg.Routing.ImpactSkipThreshold)
	// Untouched values keep their defaults.
	assert.Equal(t, 40.0, cfg.Policy.ScoreFloor)
}

func TestLoadBytes_RejectsOutOfRange(t *testing.T) {
	_, err := LoadBytes([]byte(`config: policy: approveScore: 140`))
	require.Error(t, err, "approveScore above 100 must fail validation")
}

func TestLoadBytes_RejectsInvertedBand(t *testing.T) {
	_, err := LoadBytes([]byte(`config: bands: normal: {min: 80, max: 50}`))
	require.Error(t, err, "a band with max below min must fail validation")

	// Narrowing a band while keeping it ordered still loads.
	cfg, err := LoadBytes([]byte(`config: bands: normal: {min: 45, max: 90}`))
	require.NoError(t, err)
	assert.Equal(t, scoring.ScoreBounds{Min: 45, Max: 90}, cfg.Bands.Normal)
}

func TestLoadBytes_RejectsMalformed(t *testing.T) {
	_, err := LoadBytes([]byte(`config: policy: {`))
	require.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lendflow.cue")
	require.NoError(t, os.WriteFile(path, []byte(`config: timeouts: stageSeconds: 5`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Timeout.StageSeconds)

	_, err = Load(filepath.Join(dir, "missing.cue"))
	require.Error(t, err)
}
