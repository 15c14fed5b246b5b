package registry

import "strings"

// taskRule is one (predicate, task) pair in the ordered classification table.
type taskRule struct {
	match func(id string) bool
	task  string
}

func containsAny(substrings ...string) func(string) bool {
	return func(id string) bool {
		for _, s := range substrings {
			if strings.Contains(id, s) {
				return true
			}
		}
		return false
	}
}

// classifyRules is evaluated in order against the lowercased model id. The
// same model id may appear in more than one source with inconsistent task
// tags, so the order matters and must stay stable.
var classifyRules = []taskRule{
	// Google media families first: their ids are short and would otherwise
	// fall through to text-generation.
	{containsAny("veo"), TaskTextToVideo},
	{containsAny("lyria"), TaskTextToAudio},
	{containsAny("imagen"), TaskTextToImage},
	{func(id string) bool { return strings.HasSuffix(id, "-image") }, TaskTextToImage},

	{containsAny("flux", "stable-diffusion", "sdxl", "dall"), TaskTextToImage},
	{containsAny("whisper", "speech-to-text"), TaskASR},
	{containsAny("tts", "text-to-speech", "bark", "speecht5"), TaskTextToSpeech},
	{containsAny("embed", "e5", "bge", "minilm", "sentence-transformer"), TaskFeatureExtraction},
}

// ClassifyModelID infers a task from a model id using name heuristics.
// Returns TaskTextGeneration when nothing matches.
func ClassifyModelID(id string) string {
	lower := strings.ToLower(id)
	for _, rule := range classifyRules {
		if rule.match(lower) {
			return rule.task
		}
	}
	return TaskTextGeneration
}

// ClassifyGoogleModel classifies a Google model from its id and supported
// generation methods, which carry signals the id alone does not.
func ClassifyGoogleModel(id string, methods []string) string {
	for _, m := range methods {
		switch m {
		case "embedContent":
			return TaskFeatureExtraction
		case "bidiGenerateContent":
			return TaskConversational
		}
	}
	return ClassifyModelID(id)
}
