package grounding

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Format is an input encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension. Anything other than
// .yaml or .yml is JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Unmarshal decodes data in the given format into v.
func Unmarshal(data []byte, format Format, v any) error {
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, v); err != nil {
			return eris.Wrap(err, "grounding: decode yaml")
		}
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(v); err != nil {
			return eris.Wrap(err, "grounding: decode json")
		}
	default:
		return eris.Errorf("grounding: unknown format %q", format)
	}
	return nil
}

// envelope accepts the bare metadata object, a {"groundingMetadata": ...}
// wrapper, or a full response with candidates.
type envelope struct {
	Metadata          `yaml:",inline"`
	GroundingMetadata *Metadata `json:"groundingMetadata,omitempty" yaml:"groundingMetadata,omitempty"`
	Candidates        []struct {
		GroundingMetadata *Metadata `json:"groundingMetadata,omitempty" yaml:"groundingMetadata,omitempty"`
	} `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

// DecodeMetadata parses grounding metadata. For a full response the first
// candidate carrying metadata wins.
func DecodeMetadata(data []byte, format Format) (*Metadata, error) {
	var env envelope
	if err := Unmarshal(data, format, &env); err != nil {
		return nil, err
	}
	for _, c := range env.Candidates {
		if c.GroundingMetadata != nil {
			return c.GroundingMetadata, nil
		}
	}
	if env.GroundingMetadata != nil {
		return env.GroundingMetadata, nil
	}
	md := env.Metadata
	return &md, nil
}
