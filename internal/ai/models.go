package ai

// Model ids accepted by the public chat endpoint. The table below is an
// external compatibility contract: accepted ids map to Groq model names, the
// retired 70B id is redirected to its 3.3 successor, and anything unknown
// resolves to the default model.
const (
	ModelLlama8B   = "llama-3.1-8b-instant"
	ModelLlama70B  = "llama-3.3-70b-versatile"
	ModelMixtral   = "mixtral-8x7b-32768"
	legacyLlama70B = "llama-3.1-70b-versatile"

	// DefaultModel is used when the caller supplies no model or an unknown id.
	DefaultModel = ModelLlama8B

	// FallbackModel is retried once when the provider reports the requested
	// model as decommissioned.
	FallbackModel = ModelLlama8B
)

var modelAliases = map[string]string{
	ModelLlama8B:   ModelLlama8B,
	ModelLlama70B:  ModelLlama70B,
	ModelMixtral:   ModelMixtral,
	legacyLlama70B: ModelLlama70B,
}

// ResolveModel maps a caller-supplied model id to a provider-recognized model
// name. Unknown ids resolve to DefaultModel.
func ResolveModel(id string) string {
	if resolved, ok := modelAliases[id]; ok {
		return resolved
	}
	return DefaultModel
}
