package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"gradelens/domain/query"
	"gradelens/internal/errors"
)

// binsFile is the layout of BINS_FILE:
//
//	bins:
//	  - source: Sleep_Hours_per_Night
//	    target: Sleep_Category
//	    edges: [3.9, 5, 6, 7, 8, 9.1]
//	    labels: ["4-5", "5-6", "6-7", "7-8", "8-9"]
//	    include_lowest: false
//
// Open-ended edges are written .inf and -.inf.
type binsFile struct {
	Bins []query.BinSpec `yaml:"bins"`
}

// LoadBinSpecs reads and validates bin specs from a YAML file
func LoadBinSpecs(path string) ([]query.BinSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("cannot read bins file %s: %v", path, err))
	}
	return ParseBinSpecs(data)
}

// ParseBinSpecs decodes bin specs from YAML. Unknown keys are rejected.
func ParseBinSpecs(data []byte) ([]query.BinSpec, error) {
	var f binsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, errors.ConfigInvalid(fmt.Sprintf("invalid bins file: %v", err))
	}
	for i, spec := range f.Bins {
		if spec.Source == "" {
			return nil, errors.ConfigInvalid(fmt.Sprintf("bins[%d]: source is required", i))
		}
		if err := spec.Validate(); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, err)
		}
	}
	return f.Bins, nil
}
