// Package summary shapes an organization model into a size-bounded projection
// for prompt payloads. Nothing in here feeds the analytical engines.
package summary

import (
	"sort"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
)

const relationshipsCategory = "relationships"

const (
	metaDescription = "System model representing an IT organization including people, tools, apps, and infrastructure."
	metaNote        = "Used to assist LLM agents in contextual reasoning across systems."
)

// Options bounds the projection.
type Options struct {
	MaxPerCategory   int `json:"max_per_category" validate:"gte=0"`
	MaxRelationships int `json:"max_relationships" validate:"gte=0"`
}

// DefaultOptions keeps five entries per category and fifty relationships.
func DefaultOptions() Options {
	return Options{MaxPerCategory: 5, MaxRelationships: 50}
}

// Summarize returns a bounded copy of model.
//
// Only sequence-valued categories survive. The "relationships" category keeps
// its first MaxRelationships entries as they are; every other category looks
// at its first MaxPerCategory entries, unwraps "data" envelopes and drops
// entries that are not mappings. The input model is not modified.
func Summarize(model common.OrganizationModel, opts Options) map[string][]any {
	out := make(map[string][]any, len(model))

	for category, raw := range model {
		entries, ok := raw.([]any)
		if !ok {
			continue
		}

		if category == relationshipsCategory {
			out[category] = append([]any{}, entries[:bound(len(entries), opts.MaxRelationships)]...)
			continue
		}

		kept := []any{}
		for _, entry := range entries[:bound(len(entries), opts.MaxPerCategory)] {
			if e, ok := common.UnwrapEntity(entry); ok {
				kept = append(kept, e.Fields)
			}
		}
		out[category] = kept
	}

	return out
}

func bound(n, limit int) int {
	return min(n, max(limit, 0))
}

// Meta is the static context document handed to prompt builders alongside a
// summarized model.
type Meta struct {
	Description string   `json:"description"`
	Components  []string `json:"components"`
	Note        string   `json:"note"`
}

// MetaContext lists the model's categories (sorted) together with a fixed
// description of what the model represents.
func MetaContext(model common.OrganizationModel) Meta {
	components := make([]string, 0, len(model))
	for category := range model {
		components = append(components, category)
	}
	sort.Strings(components)

	return Meta{
		Description: metaDescription,
		Components:  components,
		Note:        metaNote,
	}
}
