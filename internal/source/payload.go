package source

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/dataviewer/internal/dataset"
)

// DecodeJSON decodes a load payload from JSON.
func DecodeJSON(r io.Reader) (dataset.Raw, error) {
	var raw dataset.Raw
	if err := json.NewDecoder(WrapText(r)).Decode(&raw); err != nil {
		return dataset.Raw{}, fmt.Errorf("%w: decode json: %w", ErrMalformed, err)
	}
	return raw, nil
}

// DecodeYAML decodes a load payload from YAML.
func DecodeYAML(r io.Reader) (dataset.Raw, error) {
	var raw dataset.Raw
	if err := yaml.NewDecoder(WrapText(r)).Decode(&raw); err != nil {
		if err == io.EOF {
			return dataset.Raw{}, nil
		}
		return dataset.Raw{}, fmt.Errorf("%w: decode yaml: %w", ErrMalformed, err)
	}
	return raw, nil
}
