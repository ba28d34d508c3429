package image

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"avionics/config"
)

// LoadProfile parses a YAML ground profile. Fields the profile leaves out
// keep their default values; unknown fields are rejected.
//
// Example:
//
//	initial_wait_ms: 5000
//	flags: recording
//	baro:
//	  iir_filter: 2
func LoadProfile(data []byte) (config.Record, error) {
	rec := config.Defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rec); err != nil && !errors.Is(err, io.EOF) {
		return rec, fmt.Errorf("profile: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return rec, fmt.Errorf("profile: %w", err)
	}
	return rec, nil
}

// MarshalReport renders r as YAML
func MarshalReport(r Report) ([]byte, error) {
	return yaml.Marshal(r)
}
