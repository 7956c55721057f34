package importer

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/piwi3910/cutopt/internal/model"
)

// Job is a complete optimization request loaded from a TOML job file:
// the run parameters, the boxes to cut and any offcut bins on hand.
type Job struct {
	Config model.Config
	Boxes  []model.Box
	Bins   []model.Bin
}

// jobFile is the on-disk TOML schema. Config values are pointers so that
// absent keys fall back to the defaults instead of zeroing them.
type jobFile struct {
	Config  jobConfig   `toml:"config"`
	Boxes   []jobBox    `toml:"box"`
	Offcuts []jobOffcut `toml:"offcut"`
}

type jobConfig struct {
	Kerf         *float64 `toml:"kerf"`
	Trim         *float64 `toml:"trim"`
	BaseLength   *float64 `toml:"base_length"`
	BaseWidth    *float64 `toml:"base_width"`
	Rotatable    *bool    `toml:"rotatable"`
	Optimization *string  `toml:"optimization"`
	Stacking     *string  `toml:"stacking"`
	Timeout      *string  `toml:"timeout"`
}

type jobBox struct {
	Label     string  `toml:"label"`
	Length    float64 `toml:"length"`
	Width     float64 `toml:"width"`
	Quantity  int     `toml:"quantity"`
	Rotatable *bool   `toml:"rotatable"`
}

type jobOffcut struct {
	Length float64 `toml:"length"`
	Width  float64 `toml:"width"`
}

// LoadJob reads a TOML job file. Missing config keys keep their defaults;
// a box without a quantity counts as one.
func LoadJob(path string) (*Job, error) {
	var jf jobFile
	if _, err := toml.DecodeFile(path, &jf); err != nil {
		return nil, fmt.Errorf("decode job file: %w", err)
	}

	cfg, err := jf.Config.apply(model.DefaultConfig())
	if err != nil {
		return nil, err
	}

	job := &Job{Config: cfg}
	for i, jb := range jf.Boxes {
		qty := jb.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return nil, fmt.Errorf("box %d: quantity must be positive, got %d", i+1, qty)
		}
		label := jb.Label
		if label == "" {
			label = fmt.Sprintf("Box %d", i+1)
		}
		rotatable := true
		if jb.Rotatable != nil {
			rotatable = *jb.Rotatable
		}
		for n := 0; n < qty; n++ {
			job.Boxes = append(job.Boxes, model.NewBox(jb.Length, jb.Width, rotatable, label))
		}
	}
	for _, jo := range jf.Offcuts {
		job.Bins = append(job.Bins, model.NewBin(jo.Length, jo.Width, model.BinTypeOffcut))
	}
	return job, nil
}

// apply overlays the job file's config keys onto the defaults.
func (jc jobConfig) apply(cfg model.Config) (model.Config, error) {
	if jc.Kerf != nil {
		cfg.Kerf = *jc.Kerf
	}
	if jc.Trim != nil {
		cfg.Trim = *jc.Trim
	}
	if jc.BaseLength != nil {
		cfg.BaseLength = *jc.BaseLength
	}
	if jc.BaseWidth != nil {
		cfg.BaseWidth = *jc.BaseWidth
	}
	if jc.Rotatable != nil {
		cfg.Rotatable = *jc.Rotatable
	}
	if jc.Optimization != nil {
		level, err := model.ParseOptimizationLevel(*jc.Optimization)
		if err != nil {
			return cfg, err
		}
		cfg.Optimization = level
	}
	if jc.Stacking != nil {
		pref, err := model.ParseStackingPref(*jc.Stacking)
		if err != nil {
			return cfg, err
		}
		cfg.Stacking = pref
	}
	if jc.Timeout != nil {
		d, err := time.ParseDuration(*jc.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	return cfg, nil
}
