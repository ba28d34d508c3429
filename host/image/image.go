// Package image inspects and builds flight computer flash images on the
// ground. Images are mounted on a simulated chip so the same store and
// scanner code that runs on the board reads them.
package image

import (
	"errors"
	"fmt"
	"time"

	"avionics/config"
	"avionics/flash"
	"avionics/flash/flashsim"
	"avionics/logscan"
)

var ErrImageSize = errors.New("image: larger than flash capacity")

// Report summarizes what a flash image holds.
type Report struct {
	Valid bool `yaml:"valid"`
	// Problem is set when the record is identified but fails validation
	Problem       string        `yaml:"problem,omitempty"`
	Record        config.Record `yaml:"record"`
	ResumeAddress uint32        `yaml:"resume_address"`
	DataBytes     uint32        `yaml:"data_bytes"`
	LogFull       bool          `yaml:"log_full"`
}

// Mount loads img into a simulated chip and initializes a device on it.
// A short image is padded with erased bytes.
func Mount(img []byte) (*flash.Device, error) {
	if len(img) > flash.Capacity {
		return nil, ErrImageSize
	}
	chip := flashsim.New()
	chip.Load(img)
	return flash.Initialize(chip, flash.WithClock(func(time.Duration) {}, nil))
}

// Inspect reads the configuration record and finds the end of the data
// log in img.
func Inspect(img []byte) (Report, error) {
	var r Report
	dev, err := Mount(img)
	if err != nil {
		return r, err
	}

	rec, err := config.NewStore(dev).Load()
	switch {
	case err == nil:
		r.Valid = true
		r.Record = rec
		if verr := rec.Validate(); verr != nil {
			r.Problem = verr.Error()
		}
	case errors.Is(err, config.ErrInvalidRecord):
	default:
		return r, fmt.Errorf("load record: %w", err)
	}

	end, err := logscan.Scan(dev, logscan.DataRegion(flash.Capacity), logscan.Binary)
	switch {
	case err == nil:
	case errors.Is(err, logscan.ErrFull):
		r.LogFull = true
	default:
		return r, fmt.Errorf("scan data region: %w", err)
	}
	r.ResumeAddress = end
	r.DataBytes = end - flash.DataRegionStart
	return r, nil
}

// DataLog returns the written part of the data region of img.
func DataLog(img []byte, r Report) []byte {
	end := int(r.ResumeAddress)
	if end > len(img) {
		end = len(img)
	}
	if end <= flash.DataRegionStart {
		return nil
	}
	return img[flash.DataRegionStart:end]
}

// Build returns the parameter region image holding rec, as the board's
// store would write it.
func Build(rec config.Record) ([]byte, error) {
	chip := flashsim.New()
	dev, err := flash.Initialize(chip, flash.WithClock(func(time.Duration) {}, nil))
	if err != nil {
		return nil, err
	}
	if err := config.NewStore(dev).Save(&rec); err != nil {
		return nil, err
	}
	return chip.Peek(flash.ParamRegionStart, flash.ParamRegionEnd-flash.ParamRegionStart), nil
}
