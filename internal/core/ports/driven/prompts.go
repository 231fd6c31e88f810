package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptRAGAnswer is the answer-generation prompt.
	// The template expects two %s placeholders: the context, then the question.
	PromptRAGAnswer = "rag_answer"

	// PromptStructuredOutput is appended to every answer prompt and
	// describes the JSON reply format. It has no placeholders.
	PromptStructuredOutput = "structured_output"
)
