// Package report publishes JSON Schemas for the result documents, so the
// presentation layer can validate or embed them.
package report

import (
	"errors"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
)

var ErrUnknownDocument = errors.New("report: unknown document")

var documents = map[string]any{
	"report":       common.Report{},
	"volatility":   common.InstabilityReport{},
	"karma":        common.KarmaLedger{},
	"diff":         common.DiffResult{},
	"dependencies": common.DependencyReport{},
	"snapshot":     common.Snapshot{},
}

// Documents lists the names accepted by Schema.
func Documents() []string {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema returns the JSON Schema of a named result document.
func Schema(name string) (*jsonschema.Schema, error) {
	value, ok := documents[name]
	if !ok {
		return nil, ErrUnknownDocument
	}
	return GenerateSchema(value), nil
}

// GenerateSchema creates a JSON Schema from the given Go type. Definitions
// are inlined and unknown properties are rejected.
func GenerateSchema(value any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	v := reflect.New(t).Interface()
	return reflector.Reflect(v)
}
