package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/lesion-features/internal/features"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, runtime.NumCPU(), cfg.Processing.Workers)
	assert.Equal(t, 360, cfg.Spiculation.OrientationBins)
	assert.Equal(t, 3.0, cfg.Spiculation.BorderWidth)
	assert.Equal(t, 5, cfg.Spiculation.OpeningRadius)
	assert.Equal(t, 50.0, cfg.Spiculation.RescaleLow)
	assert.Equal(t, 100.0, cfg.Spiculation.RescaleHigh)
	assert.Equal(t, 5.0, cfg.Hough.CannySigma)
	assert.Equal(t, 100, cfg.Hough.Angles)
	assert.Equal(t, 100, cfg.Snake.Points)
	assert.Equal(t, 220.0, cfg.Snake.CenterRow)
	assert.Equal(t, 200.0, cfg.Snake.CenterCol)
	assert.Equal(t, 100.0, cfg.Snake.Radius)
	assert.Equal(t, 4, cfg.Gabor.Orientations)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
processing:
  workers: 2
  sampleTimeout: 30s
snake:
  centerRow: 64
  centerCol: 64
  radius: 40
output:
  gaborResponses: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Processing.Workers)
	assert.Equal(t, 30*time.Second, cfg.Processing.SampleTimeout)
	assert.Equal(t, 64.0, cfg.Snake.CenterRow)
	assert.Equal(t, 40.0, cfg.Snake.Radius)
	assert.True(t, cfg.Output.GaborResponses)
	// Untouched keys keep their defaults.
	assert.Equal(t, 100, cfg.Snake.Points)
	assert.Equal(t, 0.015, cfg.Snake.Alpha)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"malformed yaml", "processing: [", "error parsing config file"},
		{"zero workers", "processing:\n  workers: 0\n", "processing.workers"},
		{"inverted rescale window", "spiculation:\n  rescaleLow: 90\n  rescaleHigh: 10\n", "rescale window"},
		{"tiny snake", "snake:\n  points: 2\n", "snake.points"},
		{"empty gabor bank", "gabor:\n  sigmas: []\n", "gabor bank"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0644))

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Processing.SampleTimeout = 90 * time.Second
	cfg.Loader.ScrubLabels = true
	cfg.Gabor.Frequencies = []float64{0.1}
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "orientationBins: 360")
	assert.Contains(t, string(data), "strictDegenerate: false")
}

func TestExtractorOptions(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, features.DefaultOptions(), cfg.ExtractorOptions())

	cfg.Features.StrictDegenerate = true
	cfg.Snake.Radius = 12
	opts := cfg.ExtractorOptions()
	assert.True(t, opts.StrictDegenerate)
	assert.Equal(t, 12.0, opts.Snake.Radius)
}
