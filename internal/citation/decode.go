package citation

import (
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/grounding-cli/internal/grounding"
)

// Decode parses a citation list. The payload is a list of citation objects,
// a list of bare URLs, or an object whose "citations" field holds either, as
// in a Perplexity chat completion response.
func Decode(data []byte, format grounding.Format) (Manager, error) {
	m, listErr := decodeList(data, format)
	if listErr == nil {
		return m, nil
	}

	var wrapped struct {
		Citations rawList `json:"citations" yaml:"citations"`
	}
	if err := grounding.Unmarshal(data, format, &wrapped); err == nil && wrapped.Citations.set {
		return decodeList(wrapped.Citations.data, wrapped.Citations.format)
	}
	return Manager{}, eris.Wrap(listErr, "citation: decode citations")
}

func decodeList(data []byte, format grounding.Format) (Manager, error) {
	var cs []Citation
	objErr := grounding.Unmarshal(data, format, &cs)
	if objErr == nil {
		return New(cs...), nil
	}

	var urls []string
	if err := grounding.Unmarshal(data, format, &urls); err == nil {
		return FromURLs(urls), nil
	}
	return Manager{}, objErr
}

// rawList defers decoding of a nested list until its element type is known.
type rawList struct {
	data   []byte
	format grounding.Format
	set    bool
}

func (r *rawList) UnmarshalJSON(b []byte) error {
	r.data = append([]byte(nil), b...)
	r.format = grounding.FormatJSON
	r.set = true
	return nil
}

func (r *rawList) UnmarshalYAML(n *yaml.Node) error {
	b, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	r.data = b
	r.format = grounding.FormatYAML
	r.set = true
	return nil
}
