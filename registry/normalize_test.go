package registry

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"meta-llama/Llama-3.3-70B-Instruct", "llama3370b"},
		{"meta-llama/llama-3.3-70b-instruct", "llama3370b"},
		{"models/gemini-2.0-flash", "gemini20flash"},
		{"gemma-2-9b-it", "gemma29b"},
		{"mistralai/Mistral-7B-Instruct-v0.3", "mistral7binstructv03"},
		{"gpt-4o-latest", "gpt4o"},
		{"Qwen/Qwen2.5-72B-Instruct", "qwen2572b"},
		{"gemini-2.5-pro-preview", "gemini25pro"},
		{"asi1-mini", "asi1mini"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.id); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestDeduplicatePriority(t *testing.T) {
	input := []ModelInfo{
		{ID: "meta-llama/Llama-3.3-70B-Instruct", Source: SourceHuggingFace},
		{ID: "meta-llama/llama-3.3-70b-instruct", Source: SourceASICloud},
	}

	deduped := Deduplicate(input)
	if len(deduped) != 1 {
		t.Fatalf("len = %d, want 1", len(deduped))
	}
	if deduped[0].Source != SourceASICloud {
		t.Errorf("winner source = %q, want %q", deduped[0].Source, SourceASICloud)
	}
}

func TestDeduplicateTieBreak(t *testing.T) {
	// Same priority: alphabetical id wins, deterministically.
	input := []ModelInfo{
		{ID: "gpt-4o-latest", Source: SourceOpenAI},
		{ID: "gpt-4o", Source: SourceOpenAI},
	}

	deduped := Deduplicate(input)
	if len(deduped) != 1 {
		t.Fatalf("len = %d, want 1", len(deduped))
	}
	if deduped[0].ID != "gpt-4o" {
		t.Errorf("winner = %q, want %q", deduped[0].ID, "gpt-4o")
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	input := []ModelInfo{
		{ID: "a/model-one", Source: SourceHuggingFace},
		{ID: "model-one", Source: SourceAIML},
		{ID: "model-two", Source: SourceOpenRouter},
		{ID: "model-two", Source: SourceASIOne},
	}

	once := Deduplicate(input)
	twice := Deduplicate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Deduplicate is not idempotent:\nonce  = %+v\ntwice = %+v", once, twice)
	}
}

func TestClassifyModelID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"black-forest-labs/FLUX.1-schnell", TaskTextToImage},
		{"stabilityai/sdxl-turbo", TaskTextToImage},
		{"dall-e-3", TaskTextToImage},
		{"openai/whisper-large-v3", TaskASR},
		{"tts-1-hd", TaskTextToSpeech},
		{"suno/bark", TaskTextToSpeech},
		{"BAAI/bge-large-en-v1.5", TaskFeatureExtraction},
		{"text-embedding-3-small", TaskFeatureExtraction},
		{"veo-3.0-generate-preview", TaskTextToVideo},
		{"lyria-realtime-exp", TaskTextToAudio},
		{"imagen-4.0-generate", TaskTextToImage},
		{"gemini-2.5-flash-image", TaskTextToImage},
		{"gpt-4o", TaskTextGeneration},
		{"claude-sonnet-4-0", TaskTextGeneration},
	}

	for _, tt := range tests {
		if got := ClassifyModelID(tt.id); got != tt.want {
			t.Errorf("ClassifyModelID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestClassifyGoogleModel(t *testing.T) {
	if got := ClassifyGoogleModel("text-embedding-004", []string{"embedContent"}); got != TaskFeatureExtraction {
		t.Errorf("embedContent model = %q, want feature-extraction", got)
	}
	if got := ClassifyGoogleModel("gemini-2.0-flash-live", []string{"bidiGenerateContent"}); got != TaskConversational {
		t.Errorf("bidiGenerateContent model = %q, want conversational", got)
	}
	if got := ClassifyGoogleModel("gemini-2.5-pro", []string{"generateContent"}); got != TaskTextGeneration {
		t.Errorf("generateContent model = %q, want text-generation", got)
	}
}
