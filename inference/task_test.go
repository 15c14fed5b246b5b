package inference

import (
	"testing"

	"github.com/mark3labs/x402-gateway/registry"
)

func TestDetectTaskPrecedence(t *testing.T) {
	model := &registry.ModelInfo{ID: "some-model", Task: registry.TaskTextToImage}

	t.Run("explicit task wins", func(t *testing.T) {
		req := &Request{ModelID: "some-model", Task: registry.TaskTextToSpeech}
		if got := DetectTask(req, model); got != registry.TaskTextToSpeech {
			t.Errorf("task = %q, want explicit text-to-speech", got)
		}
	})

	t.Run("registry task second", func(t *testing.T) {
		req := &Request{ModelID: "some-model"}
		if got := DetectTask(req, model); got != registry.TaskTextToImage {
			t.Errorf("task = %q, want registry text-to-image", got)
		}
	})

	t.Run("heuristics when unregistered", func(t *testing.T) {
		req := &Request{ModelID: "openai/whisper-large-v3"}
		if got := DetectTask(req, nil); got != registry.TaskASR {
			t.Errorf("task = %q, want heuristic ASR", got)
		}
	})

	t.Run("default text-generation", func(t *testing.T) {
		req := &Request{ModelID: "some-unknown-model"}
		if got := DetectTask(req, nil); got != registry.TaskTextGeneration {
			t.Errorf("task = %q, want default text-generation", got)
		}
	})
}

func TestDetectTaskImageUpgrade(t *testing.T) {
	t2iModel := &registry.ModelInfo{ID: "m", Task: registry.TaskTextToImage}
	textModel := &registry.ModelInfo{ID: "m", Task: registry.TaskTextGeneration}
	ttsModel := &registry.ModelInfo{ID: "m", Task: registry.TaskTextToSpeech}

	withImage := &Request{ModelID: "m", Image: "aGVsbG8="}
	if got := DetectTask(withImage, t2iModel); got != registry.TaskImageToImage {
		t.Errorf("t2i+image = %q, want image-to-image", got)
	}
	if got := DetectTask(withImage, textModel); got != registry.TaskImageToImage {
		t.Errorf("text+image = %q, want image-to-image", got)
	}
	// Only t2i and text-generation upgrade.
	if got := DetectTask(withImage, ttsModel); got != registry.TaskTextToSpeech {
		t.Errorf("tts+image = %q, want text-to-speech unchanged", got)
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		task    string
		wantErr bool
	}{
		{"chat with messages", Request{Messages: []Message{{Role: "user", Content: "hi"}}}, registry.TaskTextGeneration, false},
		{"chat empty", Request{}, registry.TaskTextGeneration, true},
		{"t2i with prompt", Request{Prompt: "a cat"}, registry.TaskTextToImage, false},
		{"i2i missing image", Request{Prompt: "a cat"}, registry.TaskImageToImage, true},
		{"asr missing audio", Request{}, registry.TaskASR, true},
		{"similarity complete", Request{SourceSentence: "a", Sentences: []string{"b"}}, registry.TaskSentenceSimilarity, false},
		{"similarity missing", Request{SourceSentence: "a"}, registry.TaskSentenceSimilarity, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(tt.task)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
