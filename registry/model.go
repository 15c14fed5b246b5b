// Package registry maintains the aggregated, deduplicated catalog of models
// reachable through the gateway. Per-source fetchers pull each provider's
// native catalog; normalization and a strict source priority collapse
// duplicates; a curated pricing overlay corrects sparse provider data. The
// whole catalog is cached in-process and replaced atomically on refresh.
package registry

// Model sources, in the order clients usually think of them. The priority
// table below decides which source wins when the same model appears in more
// than one catalog.
const (
	SourceHuggingFace = "huggingface"
	SourceASIOne      = "asi-one"
	SourceASICloud    = "asi-cloud"
	SourceOpenAI      = "openai"
	SourceAnthropic   = "anthropic"
	SourceGoogle      = "google"
	SourceOpenRouter  = "openrouter"
	SourceAIML        = "aiml"
)

// sourcePriority ranks sources for deduplication; lower wins.
var sourcePriority = map[string]int{
	SourceASICloud:    1,
	SourceASIOne:      2,
	SourceGoogle:      3,
	SourceOpenAI:      3,
	SourceAnthropic:   3,
	SourceHuggingFace: 4,
	SourceOpenRouter:  5,
	SourceAIML:        6,
}

// Priority returns the dedup rank of a source. Unknown sources rank last.
func Priority(source string) int {
	if p, ok := sourcePriority[source]; ok {
		return p
	}
	return 100
}

// Model task identifiers, matching the HuggingFace pipeline-tag vocabulary.
const (
	TaskTextGeneration     = "text-generation"
	TaskTextToImage        = "text-to-image"
	TaskImageToImage       = "image-to-image"
	TaskTextToSpeech       = "text-to-speech"
	TaskTextToVideo        = "text-to-video"
	TaskTextToAudio        = "text-to-audio"
	TaskASR                = "automatic-speech-recognition"
	TaskFeatureExtraction  = "feature-extraction"
	TaskSentenceSimilarity = "sentence-similarity"
	TaskConversational     = "conversational"
)

// Rates is a pair of USD-per-million-token prices.
type Rates struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// ProviderPricing is one inference provider's offering of a model, as
// reported by the HuggingFace router or synthesized for native sources.
type ProviderPricing struct {
	Provider                 string `json:"provider"`
	Status                   string `json:"status"` // live, staging, offline
	ContextLength            int    `json:"contextLength,omitempty"`
	Pricing                  *Rates `json:"pricing,omitempty"`
	SupportsTools            bool   `json:"supportsTools,omitempty"`
	SupportsStructuredOutput bool   `json:"supportsStructuredOutput,omitempty"`
}

// ModelPricing is the chosen top-level pricing for a model: the cheapest live
// provider for router-priced models, the source's native rates otherwise.
type ModelPricing struct {
	Provider string  `json:"provider,omitempty"`
	Input    float64 `json:"input"`
	Output   float64 `json:"output"`
}

// Architecture describes a model's input and output modalities.
type Architecture struct {
	InputModalities  []string `json:"inputModalities,omitempty"`
	OutputModalities []string `json:"outputModalities,omitempty"`
}

// ModelInfo is one catalog entry.
type ModelInfo struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	OwnedBy       string            `json:"ownedBy,omitempty"`
	Source        string            `json:"source"`
	Task          string            `json:"task"`
	ContextLength int               `json:"contextLength,omitempty"`
	Architecture  *Architecture     `json:"architecture,omitempty"`
	Providers     []ProviderPricing `json:"providers,omitempty"`
	Pricing       *ModelPricing     `json:"pricing,omitempty"`

	// Available reflects whether the source's credential is configured.
	Available bool `json:"available"`
}

// Registry is one immutable catalog snapshot. Sources lists only the sources
// that contributed at least one model to this snapshot.
type Registry struct {
	Models      []ModelInfo `json:"models"`
	LastUpdated int64       `json:"lastUpdated"` // epoch milliseconds
	Sources     []string    `json:"sources"`
}

// Lookup returns the entry whose ID matches exactly, or nil. Linear scan:
// the catalog tops out at a few thousand entries.
func (r *Registry) Lookup(id string) *ModelInfo {
	for i := range r.Models {
		if r.Models[i].ID == id {
			return &r.Models[i]
		}
	}
	return nil
}
