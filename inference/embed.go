package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	gateway "github.com/mark3labs/x402-gateway"
	"github.com/mark3labs/x402-gateway/registry"
)

// embed runs feature extraction or sentence similarity through the inference
// router and returns {embeddings, dimensions}.
func (rt *Router) embed(ctx context.Context, w http.ResponseWriter, req *Request, task string, finish FinishFunc) error {
	var body map[string]interface{}
	var inputBytes int

	if task == registry.TaskSentenceSimilarity {
		body = map[string]interface{}{
			"inputs": map[string]interface{}{
				"source_sentence": req.SourceSentence,
				"sentences":       req.Sentences,
			},
		}
		inputBytes = len(req.SourceSentence)
		for _, s := range req.Sentences {
			inputBytes += len(s)
		}
	} else {
		body = map[string]interface{}{"inputs": req.Inputs}
		if s, ok := req.Inputs.(string); ok {
			inputBytes = len(s)
		} else {
			raw, _ := json.Marshal(req.Inputs)
			inputBytes = len(raw)
		}
	}

	raw, err := rt.hfBinaryCall(ctx, req.ModelID, body, "")
	if err != nil {
		return err
	}

	var embeddings interface{}
	if err := json.Unmarshal(raw, &embeddings); err != nil {
		return fmt.Errorf("%w: unexpected embedding response: %v", gateway.ErrUpstreamError, err)
	}

	usage := gateway.TokenUsage{InputTokens: (inputBytes + 3) / 4}
	usage.TotalTokens = usage.InputTokens
	model, _ := rt.registry.GetModelInfo(ctx, req.ModelID)
	cost := rt.cost(model, usage)

	writeCostHeader(w, cost)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"embeddings": embeddings,
		"dimensions": embeddingDimensions(embeddings),
	})

	finish(cost, usage)
	return nil
}

// embeddingDimensions infers the vector width from the response shape:
// either a flat vector, a batch of vectors, or a similarity score list.
func embeddingDimensions(v interface{}) int {
	arr, ok := v.([]interface{})
	if !ok || len(arr) == 0 {
		return 0
	}
	if inner, ok := arr[0].([]interface{}); ok {
		return len(inner)
	}
	return len(arr)
}
