package domain

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// DocIDs restricts retrieval to these documents. Empty means all.
	DocIDs []string

	// Limit is the number of chunks passed to the LLM (K).
	// Zero means the configured default.
	Limit int

	// UseReranking enables the second-pass reranker when available.
	UseReranking bool

	// Provider selects the LLM backend. Empty means the default provider.
	Provider LLMProvider
}

// Filter returns the vector store filter for these options.
func (o SearchOptions) Filter() SearchFilter {
	return SearchFilter{DocIDs: o.DocIDs}
}
