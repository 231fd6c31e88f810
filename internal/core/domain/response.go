package domain

// Citation references a page of a document.
type Citation struct {
	DocID string `json:"doc_id"`
	Page  int    `json:"page"`
}

// Claim is a statement of the answer together with its supporting citations.
type Claim struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// Source is a retrieved chunk surfaced to the caller alongside the answer.
type Source struct {
	DocID          string  `json:"doc_id"`
	Page           int     `json:"page"`
	ContentPreview string  `json:"content_preview"`
	Score          float64 `json:"score"`
}

// StructuredAnswer is the validated form of an LLM reply.
type StructuredAnswer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Claims    []Claim    `json:"claims"`
}

// RAGResponse is the result of a retrieval query.
//
// Invariants: when Success is false, Citations and Sources are empty;
// Sources is non-empty only when Citations is non-empty.
type RAGResponse struct {
	Answer         string     `json:"answer"`
	Citations      []Citation `json:"citations"`
	Claims         []Claim    `json:"claims"`
	Sources        []Source   `json:"sources"`
	Confidence     float64    `json:"confidence"`
	ProcessingTime float64    `json:"processing_time"`
	Success        bool       `json:"success"`
	ErrorMessage   string     `json:"error_message,omitempty"`

	// Reranked is false when reranking was requested but scores come from vector search.
	Reranked bool `json:"reranked"`

	// Provider is the LLM backend that produced the answer.
	Provider LLMProvider `json:"provider,omitempty"`

	// RequestID correlates log lines of one query.
	RequestID string `json:"request_id,omitempty"`
}

// Answer texts returned on the failure paths.
const (
	AnswerNoInformation = "Aucune information pertinente trouvée."
	systemErrorPrefix   = "Erreur système: "
)

// ErrorResponse builds a failed response carrying msg.
func ErrorResponse(msg string) RAGResponse {
	return RAGResponse{
		Answer:       systemErrorPrefix + msg,
		Citations:    []Citation{},
		Claims:       []Claim{},
		Sources:      []Source{},
		Success:      false,
		ErrorMessage: msg,
	}
}

// EmptyResponse builds a successful response for a query with no relevant content.
func EmptyResponse() RAGResponse {
	return RAGResponse{
		Answer:     AnswerNoInformation,
		Citations:  []Citation{},
		Claims:     []Claim{},
		Sources:    []Source{},
		Confidence: 0,
		Success:    true,
	}
}
