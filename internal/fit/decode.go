package fit

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/gominuit/internal/optimization"
)

// DecodeParamConfigs reads a mapping of parameter name to ParamConfig from
// YAML or JSON. Unknown fields are rejected in one error listing all of them.
func DecodeParamConfigs(r io.Reader) (map[string]ParamConfig, error) {
	out := make(map[string]ParamConfig)
	if err := DecodeStrict(r, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeStrict decodes a YAML or JSON document into v, rejecting unknown
// fields. An empty document leaves v untouched.
func DecodeStrict(r io.Reader, v interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return optimization.WrapError(err, optimization.KindInvalidArgument, "reading configuration").
			WithComponent("config")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		if e, ok := optimization.IsOptimizationError(err); ok {
			return e
		}
		return optimization.WrapError(err, optimization.KindInvalidArgument, "invalid configuration").
			WithComponent("config")
	}
	return nil
}
