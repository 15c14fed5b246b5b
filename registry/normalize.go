package registry

import (
	"sort"
	"strings"
)

// Org prefixes stripped before comparison. The same model circulates under
// different namespaces across catalogs (e.g. "meta-llama/Llama-3.3-70B" on
// HuggingFace vs "llama-3.3-70b" on an OpenAI-compatible endpoint).
var orgPrefixes = []string{
	"models/",
	"meta-llama/",
	"mistralai/",
	"google/",
	"qwen/",
	"openai/",
	"anthropic/",
	"black-forest-labs/",
	"stabilityai/",
	"nousresearch/",
}

// Variant suffixes that do not distinguish models for billing purposes.
var variantSuffixes = []string{
	"instruct",
	"chat",
	"it",
	"latest",
	"preview",
	"experimental",
}

// Normalize collapses a model id to its comparison key: lowercase, org
// prefix stripped, non-alphanumerics removed, trailing variant tokens
// stripped.
func Normalize(id string) string {
	s := strings.ToLower(id)

	for _, prefix := range orgPrefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s = b.String()

	for stripped := true; stripped; {
		stripped = false
		for _, suffix := range variantSuffixes {
			if len(s) > len(suffix) && strings.HasSuffix(s, suffix) {
				s = strings.TrimSuffix(s, suffix)
				stripped = true
			}
		}
	}

	return s
}

// Deduplicate keeps one entry per normalized id: the entry whose source has
// the lowest priority number, ties broken by id ascending for determinism.
// The result is sorted by (priority, id) and the operation is idempotent.
func Deduplicate(models []ModelInfo) []ModelInfo {
	sorted := make([]ModelInfo, len(models))
	copy(sorted, models)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := Priority(sorted[i].Source), Priority(sorted[j].Source)
		if pi != pj {
			return pi < pj
		}
		return sorted[i].ID < sorted[j].ID
	})

	seen := make(map[string]bool, len(sorted))
	deduped := sorted[:0]
	for _, m := range sorted {
		key := Normalize(m.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, m)
	}

	return deduped
}
