package registry

import (
	"regexp"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/payment"
)

// curatedPricing is the offline-maintained ground-truth table, keyed by
// source and exact model id. Provider catalogs are sparse or stale on
// pricing; entries here win over whatever the fetcher attached.
//
// Rates are USD per million tokens.
var curatedPricing = map[string]map[string]Rates{
	SourceOpenAI: {
		"gpt-4o":        {Input: 2.50, Output: 10.00},
		"gpt-4o-mini":   {Input: 0.15, Output: 0.60},
		"gpt-4.1":       {Input: 2.00, Output: 8.00},
		"gpt-4.1-mini":  {Input: 0.40, Output: 1.60},
		"gpt-4.1-nano":  {Input: 0.10, Output: 0.40},
		"o3":            {Input: 2.00, Output: 8.00},
		"o4-mini":       {Input: 1.10, Output: 4.40},
		"dall-e-3":      {Input: 40.00, Output: 0},
		"whisper-1":     {Input: 6.00, Output: 0},
		"tts-1":         {Input: 15.00, Output: 0},
	},
	SourceAnthropic: {
		"claude-opus-4-1":   {Input: 15.00, Output: 75.00},
		"claude-sonnet-4-0": {Input: 3.00, Output: 15.00},
		"claude-3-5-haiku":  {Input: 0.80, Output: 4.00},
	},
	SourceGoogle: {
		"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
		"gemini-2.5-flash": {Input: 0.30, Output: 2.50},
		"gemini-2.0-flash": {Input: 0.10, Output: 0.40},
		"veo-3.0-generate": {Input: 0, Output: 750.00},
		"imagen-4.0":       {Input: 0, Output: 40.00},
	},
	SourceASIOne: {
		"asi1-mini":     {Input: 0.20, Output: 0.80},
		"asi1-fast":     {Input: 0.50, Output: 2.00},
		"asi1-extended": {Input: 1.00, Output: 4.00},
	},
	SourceASICloud: {
		"meta-llama/llama-3.3-70b-instruct": {Input: 0.60, Output: 0.80},
		"deepseek-ai/deepseek-v3":           {Input: 0.50, Output: 1.50},
		"qwen/qwen2.5-72b-instruct":         {Input: 0.60, Output: 0.80},
	},
}

// dateSuffix matches trailing release-date tags like "-20250514" or
// "-2025-05-14" that providers append to otherwise stable model ids.
var dateSuffix = regexp.MustCompile(`-\d{4}-?\d{2}-?\d{2}$`)

// CuratedRates looks up the curated table by (source, id), falling back to
// the id with any trailing date suffix removed.
func CuratedRates(source, id string) (Rates, bool) {
	table, ok := curatedPricing[source]
	if !ok {
		return Rates{}, false
	}
	if rates, ok := table[id]; ok {
		return rates, true
	}
	if trimmed := dateSuffix.ReplaceAllString(id, ""); trimmed != id {
		if rates, ok := table[trimmed]; ok {
			return rates, true
		}
	}
	return Rates{}, false
}

// overlayPricing applies the curated table on top of fetched pricing. Runs
// after dedup so only surviving entries are touched.
func overlayPricing(models []ModelInfo) {
	for i := range models {
		rates, ok := CuratedRates(models[i].Source, models[i].ID)
		if !ok {
			continue
		}
		models[i].Pricing = &ModelPricing{
			Provider: models[i].Source,
			Input:    rates.Input,
			Output:   rates.Output,
		}
	}
}

// CostForModel computes the metered cost of usage against a model's pricing.
// Models without pricing bill only the platform fee.
func CostForModel(model *ModelInfo, usage gateway.TokenUsage) payment.InferenceCost {
	if model == nil || model.Pricing == nil {
		return payment.CostFromRates(0, 0, "", usage)
	}
	return payment.CostFromRates(model.Pricing.Input, model.Pricing.Output, model.Pricing.Provider, usage)
}
