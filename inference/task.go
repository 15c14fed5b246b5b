package inference

import "github.com/mark3labs/x402-gateway/registry"

// DetectTask resolves the task for a request, in order of precedence:
// the request's explicit task, the registry entry's task, model-id
// heuristics, then the text-generation default. Finally, a request carrying
// an input image upgrades text-to-image and text-generation to
// image-to-image.
func DetectTask(req *Request, model *registry.ModelInfo) string {
	task := req.Task
	if task == "" && model != nil && model.Task != "" {
		task = model.Task
	}
	if task == "" {
		task = registry.ClassifyModelID(req.ModelID)
	}

	if req.Image != "" && (task == registry.TaskTextToImage || task == registry.TaskTextGeneration) {
		task = registry.TaskImageToImage
	}
	return task
}
