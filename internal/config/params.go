package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// paramsFile is the YAML schema of the --params file. All fields are
// pointers so absent keys leave the Config defaults untouched:
//
//	bet:
//	  frac: 0.35
//	  robust: false
//	fast:
//	  classes: 3
//	  bias_correct: true
//	recon_all:
//	  enabled: false
//	  threads: 8
type paramsFile struct {
	Bet struct {
		Frac   *float64 `yaml:"frac"`
		Robust *bool    `yaml:"robust"`
	} `yaml:"bet"`
	Fast struct {
		Classes     *int  `yaml:"classes"`
		BiasCorrect *bool `yaml:"bias_correct"`
	} `yaml:"fast"`
	ReconAll struct {
		Enabled *bool `yaml:"enabled"`
		Threads *int  `yaml:"threads"`
	} `yaml:"recon_all"`
}

// LoadParams reads a YAML parameter file and overlays the values it sets
// onto cfg. Unknown keys are rejected so typos surface instead of silently
// keeping defaults.
func LoadParams(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read params file: %w", err)
	}

	var pf paramsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse params file %s: %w", path, err)
	}

	if pf.Bet.Frac != nil {
		cfg.BetFrac = *pf.Bet.Frac
	}
	if pf.Bet.Robust != nil {
		cfg.BetRobust = *pf.Bet.Robust
	}
	if pf.Fast.Classes != nil {
		cfg.FastClasses = *pf.Fast.Classes
	}
	if pf.Fast.BiasCorrect != nil {
		cfg.FastBiasCorrect = *pf.Fast.BiasCorrect
	}
	if pf.ReconAll.Enabled != nil {
		cfg.ReconAll = *pf.ReconAll.Enabled
	}
	if pf.ReconAll.Threads != nil {
		cfg.ReconAllThreads = *pf.ReconAll.Threads
	}
	return nil
}
