// Package config provides configuration loading and management for
// lesion-features. It handles loading configuration from YAML files and
// provides default values for every descriptor.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/lesion-features/internal/detection"
	"github.com/ironsheep/lesion-features/internal/features"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers is how many samples are extracted concurrently
		Workers int `yaml:"workers"`

		// SampleTimeout bounds the extraction of one sample; 0 disables it
		SampleTimeout time.Duration `yaml:"sampleTimeout"`
	} `yaml:"processing"`

	// Loader parameters
	Loader struct {
		// MaxDimension downscales samples whose longer side exceeds it; 0 keeps
		// the native size
		MaxDimension int `yaml:"maxDimension"`

		// ScrubLabels blanks burned-in annotations before the image bounding
		// box is measured
		ScrubLabels bool `yaml:"scrubLabels"`

		// LabelLanguage is the Tesseract language used to confirm annotations
		LabelLanguage string `yaml:"labelLanguage"`
	} `yaml:"loader"`

	// Spiculation parameters
	Spiculation struct {
		OrientationBins int     `yaml:"orientationBins"`
		BorderWidth     float64 `yaml:"borderWidth"`
		OpeningRadius   int     `yaml:"openingRadius"`
		RescaleLow      float64 `yaml:"rescaleLow"`
		RescaleHigh     float64 `yaml:"rescaleHigh"`
	} `yaml:"spiculation"`

	// Hough line count parameters
	Hough struct {
		CannySigma     float64 `yaml:"cannySigma"`
		LowThreshold   float64 `yaml:"lowThreshold"`
		HighThreshold  float64 `yaml:"highThreshold"`
		Angles         int     `yaml:"angles"`
		MinDistance    int     `yaml:"minDistance"`
		MinAngle       int     `yaml:"minAngle"`
		ThresholdRatio float64 `yaml:"thresholdRatio"`
	} `yaml:"hough"`

	// Active contour parameters. The initial circle targets the expected
	// lesion position of the dataset.
	Snake struct {
		Points        int     `yaml:"points"`
		CenterRow     float64 `yaml:"centerRow"`
		CenterCol     float64 `yaml:"centerCol"`
		Radius        float64 `yaml:"radius"`
		Sigma         float64 `yaml:"sigma"`
		Alpha         float64 `yaml:"alpha"`
		Beta          float64 `yaml:"beta"`
		Gamma         float64 `yaml:"gamma"`
		MaxPxMove     float64 `yaml:"maxPxMove"`
		MaxIterations int     `yaml:"maxIterations"`
		Convergence   float64 `yaml:"convergence"`
	} `yaml:"snake"`

	// Gabor bank parameters
	Gabor struct {
		Orientations int       `yaml:"orientations"`
		Sigmas       []float64 `yaml:"sigmas"`
		Frequencies  []float64 `yaml:"frequencies"`
		NStds        float64   `yaml:"nStds"`
	} `yaml:"gabor"`

	// Feature assembly parameters
	Features struct {
		// StrictDegenerate fails empty or all-zero samples instead of
		// reporting zeros
		StrictDegenerate bool `yaml:"strictDegenerate"`
	} `yaml:"features"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// GaborResponses appends the mean and variance of every Gabor kernel
		// to the CSV output
		GaborResponses bool `yaml:"gaborResponses"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.SampleTimeout = 0

	cfg.Loader.MaxDimension = 0
	cfg.Loader.ScrubLabels = false
	cfg.Loader.LabelLanguage = "eng"

	spic := features.DefaultSpiculationOptions()
	cfg.Spiculation.OrientationBins = spic.Bins
	cfg.Spiculation.BorderWidth = spic.BorderWidth
	cfg.Spiculation.OpeningRadius = spic.OpeningRadius
	cfg.Spiculation.RescaleLow = spic.RescaleLow
	cfg.Spiculation.RescaleHigh = spic.RescaleHigh

	hough := detection.DefaultHoughOptions()
	cfg.Hough.CannySigma = hough.Canny.Sigma
	cfg.Hough.LowThreshold = hough.Canny.Low
	cfg.Hough.HighThreshold = hough.Canny.High
	cfg.Hough.Angles = hough.Angles
	cfg.Hough.MinDistance = hough.MinDistance
	cfg.Hough.MinAngle = hough.MinAngle
	cfg.Hough.ThresholdRatio = hough.ThresholdRatio

	snake := detection.DefaultSnakeOptions()
	cfg.Snake.Points = snake.Points
	cfg.Snake.CenterRow = snake.CenterRow
	cfg.Snake.CenterCol = snake.CenterCol
	cfg.Snake.Radius = snake.Radius
	cfg.Snake.Sigma = snake.Sigma
	cfg.Snake.Alpha = snake.Alpha
	cfg.Snake.Beta = snake.Beta
	cfg.Snake.Gamma = snake.Gamma
	cfg.Snake.MaxPxMove = snake.MaxPxMove
	cfg.Snake.MaxIterations = snake.MaxIterations
	cfg.Snake.Convergence = snake.Convergence

	gabor := detection.DefaultGaborOptions()
	cfg.Gabor.Orientations = gabor.Orientations
	cfg.Gabor.Sigmas = gabor.Sigmas
	cfg.Gabor.Frequencies = gabor.Frequencies
	cfg.Gabor.NStds = gabor.NStds

	cfg.Features.StrictDegenerate = false

	cfg.Output.Verbose = false
	cfg.Output.GaborResponses = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate reports settings no descriptor can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Processing.Workers < 1 {
		errs = append(errs, fmt.Errorf("processing.workers must be at least 1, got %d", c.Processing.Workers))
	}
	if c.Processing.SampleTimeout < 0 {
		errs = append(errs, fmt.Errorf("processing.sampleTimeout must not be negative"))
	}
	if c.Loader.MaxDimension < 0 {
		errs = append(errs, fmt.Errorf("loader.maxDimension must not be negative"))
	}
	if c.Spiculation.RescaleLow < 0 || c.Spiculation.RescaleHigh > 100 || c.Spiculation.RescaleLow >= c.Spiculation.RescaleHigh {
		errs = append(errs, fmt.Errorf("spiculation rescale window [%g, %g] must satisfy 0 <= low < high <= 100",
			c.Spiculation.RescaleLow, c.Spiculation.RescaleHigh))
	}
	if c.Spiculation.OpeningRadius < 0 {
		errs = append(errs, fmt.Errorf("spiculation.openingRadius must not be negative"))
	}
	if c.Hough.Angles < 1 {
		errs = append(errs, fmt.Errorf("hough.angles must be at least 1, got %d", c.Hough.Angles))
	}
	if c.Hough.LowThreshold > c.Hough.HighThreshold {
		errs = append(errs, fmt.Errorf("hough.lowThreshold %g exceeds hough.highThreshold %g",
			c.Hough.LowThreshold, c.Hough.HighThreshold))
	}
	if c.Snake.Points < 3 {
		errs = append(errs, fmt.Errorf("snake.points must be at least 3, got %d", c.Snake.Points))
	}
	if c.Snake.Gamma <= 0 {
		errs = append(errs, fmt.Errorf("snake.gamma must be positive"))
	}
	if c.Gabor.Orientations < 1 || len(c.Gabor.Sigmas) == 0 || len(c.Gabor.Frequencies) == 0 {
		errs = append(errs, fmt.Errorf("gabor bank needs at least one orientation, sigma and frequency"))
	}
	return errors.Join(errs...)
}

// ExtractorOptions converts the descriptor sections into extractor settings.
func (c *Config) ExtractorOptions() features.Options {
	return features.Options{
		Spiculation: features.SpiculationOptions{
			Bins:          c.Spiculation.OrientationBins,
			BorderWidth:   c.Spiculation.BorderWidth,
			OpeningRadius: c.Spiculation.OpeningRadius,
			RescaleLow:    c.Spiculation.RescaleLow,
			RescaleHigh:   c.Spiculation.RescaleHigh,
		},
		Hough: detection.HoughOptions{
			Canny: detection.CannyOptions{
				Sigma: c.Hough.CannySigma,
				Low:   c.Hough.LowThreshold,
				High:  c.Hough.HighThreshold,
			},
			Angles:         c.Hough.Angles,
			MinDistance:    c.Hough.MinDistance,
			MinAngle:       c.Hough.MinAngle,
			ThresholdRatio: c.Hough.ThresholdRatio,
		},
		Snake: detection.SnakeOptions{
			Points:        c.Snake.Points,
			CenterRow:     c.Snake.CenterRow,
			CenterCol:     c.Snake.CenterCol,
			Radius:        c.Snake.Radius,
			Sigma:         c.Snake.Sigma,
			Alpha:         c.Snake.Alpha,
			Beta:          c.Snake.Beta,
			Gamma:         c.Snake.Gamma,
			MaxPxMove:     c.Snake.MaxPxMove,
			MaxIterations: c.Snake.MaxIterations,
			Convergence:   c.Snake.Convergence,
		},
		Gabor: detection.GaborOptions{
			Orientations: c.Gabor.Orientations,
			Sigmas:       c.Gabor.Sigmas,
			Frequencies:  c.Gabor.Frequencies,
			NStds:        c.Gabor.NStds,
		},
		StrictDegenerate: c.Features.StrictDegenerate,
	}
}
