package domain

import "sort"

// Component names used as HealthReport keys.
const (
	ComponentEmbedding   = "embedding"
	ComponentReranker    = "reranker"
	ComponentVectorStore = "vector_store"
	componentLLMPrefix   = "llm_"
)

// LLMComponent returns the HealthReport key of an LLM backend.
func LLMComponent(p LLMProvider) string {
	return componentLLMPrefix + string(p)
}

// HealthReport maps component names to availability.
type HealthReport map[string]bool

// Healthy reports whether every component is available.
func (h HealthReport) Healthy() bool {
	for _, ok := range h {
		if !ok {
			return false
		}
	}
	return true
}

// Components returns the component names in sorted order.
func (h HealthReport) Components() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
