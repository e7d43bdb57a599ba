package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"gopkg.in/yaml.v3"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
)

// Decode parses a model document. With ModelFormatAuto, content starting with
// '{' or a quote is treated as JSON and everything else as YAML.
func Decode(data []byte, format ModelFormat) (common.OrganizationModel, error) {
	if format == ModelFormatAuto {
		format = sniff(data)
	}

	var raw any
	switch format {
	case ModelFormatJSON:
		var doc map[string]any
		if err := UnmarshalFlexible(string(data), &doc); err != nil {
			return nil, err
		}
		raw = doc
	case ModelFormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("yaml: %w", err)
		}
		raw = normalizeYAML(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	model, ok := common.AsMap(raw)
	if !ok {
		return nil, fmt.Errorf("%w: document root is %T, not a mapping", ErrUnsupportedFormat, raw)
	}
	return common.OrganizationModel(model), nil
}

func sniff(data []byte) ModelFormat {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '"') {
		return ModelFormatJSON
	}
	return ModelFormatYAML
}

// normalizeYAML turns map[any]any values produced for non-string keys into
// map[string]any so the result marshals as JSON.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		m, _ := common.AsMap(t)
		for k, val := range m {
			m[k] = normalizeYAML(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}

func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

// UnmarshalFlexible unmarshals JSON into out, falling back to double-encoded
// strings and finally to repairing malformed JSON. Model documents exported
// from LLM tooling regularly carry trailing commas, single quotes or a
// missing closing brace.
//
// Example:
//
//	var model map[string]any
//	UnmarshalFlexible(`{"tools": []}`, &model)      // standard JSON
//	UnmarshalFlexible(`"{\"tools\": []}"`, &model)  // double-encoded
//	UnmarshalFlexible(`{tools: [],}`, &model)       // malformed (repaired)
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}

	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w", err)
	}

	logger.Debug("[Loader] Repaired malformed JSON document", "bytes", len(input))
	return nil
}
