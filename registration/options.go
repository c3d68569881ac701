package registration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options configures a Driver run.
type Options struct {
	SampleSize             int     `yaml:"sample_size"`
	Delta                  float64 `yaml:"delta"`
	MaxNormalDifference    float64 `yaml:"max_normal_difference"`
	MaxColorDistance       float64 `yaml:"max_color_distance"`
	MaxTranslationDistance float64 `yaml:"max_translation_distance"`
	MaxAngle               float64 `yaml:"max_angle"`
	MaxTimeSeconds         float64 `yaml:"max_time_seconds"`
	OverlapEstimation      float64 `yaml:"overlap_estimation"`
	RandomSeed             int64   `yaml:"random_seed"`
	ComputeScale           bool    `yaml:"compute_scale"`
	Weighted               bool    `yaml:"weighted"`
	Accelerated            bool    `yaml:"accelerated"`
	Multiscale             bool    `yaml:"multiscale"`
}

// DefaultOptions returns reasonable defaults for a first registration
// attempt.
func DefaultOptions() Options {
	return Options{
		SampleSize:             200,
		Delta:                  0.01,
		MaxNormalDifference:    0,
		MaxColorDistance:       0,
		MaxTranslationDistance: 0,
		MaxAngle:               0,
		MaxTimeSeconds:         10,
		OverlapEstimation:      0.2,
		RandomSeed:             1,
		ComputeScale:           false,
		Weighted:               false,
		Accelerated:            true,
		Multiscale:             false,
	}
}

// ConfigureOverlap sets OverlapEstimation, rejecting values outside (0, 1].
func (o *Options) ConfigureOverlap(v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("overlap estimation must be in (0, 1], got %v", v)
	}
	o.OverlapEstimation = v
	return nil
}

// LoadOptions loads Options from a YAML file.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("options file not found: %s", path)
		}
		return nil, fmt.Errorf("reading options file: %w", err)
	}

	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parsing options YAML: %w", err)
	}
	if opts.OverlapEstimation <= 0 || opts.OverlapEstimation > 1 {
		return nil, fmt.Errorf("overlap_estimation must be in (0, 1]")
	}
	return &opts, nil
}

// SaveOptions writes opts to path as YAML.
func SaveOptions(path string, opts *Options) error {
	data, err := yaml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("marshaling options YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing options file: %w", err)
	}
	return nil
}
