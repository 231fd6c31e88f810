package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/logger"
	"github.com/custodia-labs/ragpipe/internal/structured"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

const promptExt = ".txt"

// PromptStore serves answer prompts from editable files in a directory,
// falling back to the built-in French templates.
//
// The directory is seeded with the built-in templates on the first Load, not
// in the constructor. A file is read again whenever its size or modification
// time changes, so edits reach long-running watch and mcp processes.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu      sync.Mutex
	entries map[string]promptEntry
}

// promptEntry is a file's trimmed content and the stat it was read at.
type promptEntry struct {
	text    string
	size    int64
	modTime time.Time
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptRAGAnswer: `Tu es un assistant IA spécialisé dans l'analyse de documents.

Contexte extrait des documents:
%s

Question: %s

Instructions:
1. Réponds uniquement en français
2. Base ta réponse sur le contexte fourni
3. Si l'information n'est pas dans le contexte, dis-le clairement
4. Cite tes sources en indiquant le document et la page

Réponds en français avec les détails pertinents du contexte.`,

	driven.PromptStructuredOutput: structured.PromptSuffix,
}

// placeholders is the number of %s verbs each template is filled with.
var placeholders = map[string]int{
	driven.PromptRAGAnswer:        2,
	driven.PromptStructuredOutput: 0,
}

// DefaultPrompt returns the built-in template for name.
func DefaultPrompt(name string) (string, bool) {
	prompt, ok := defaultPrompts[name]
	return prompt, ok
}

// NewPromptStore creates a prompt store over dir.
// An empty dir selects ~/.ragpipe/prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".ragpipe", "prompts")
	}
	return &PromptStore{dir: dir, entries: make(map[string]promptEntry)}, nil
}

// Load returns the template for name. A missing file, or an edited template
// with the wrong number of %s placeholders, yields the built-in template.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, known := defaultPrompts[name]

	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		if known {
			return builtin, nil
		}
		return "", fmt.Errorf("prompt directory %s: %w", s.dir, s.seedErr)
	}

	text, err := s.read(name)
	if err != nil {
		if known {
			logger.Debug("Prompt %s unreadable, using built-in: %v", name, err)
			return builtin, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	if want, ok := placeholders[name]; ok {
		if got := countVerbs(text); got != want {
			logger.Warn("Prompt %s has %d %%s placeholders, expected %d: using built-in template",
				s.path(name), got, want)
			return builtin, nil
		}
	}
	return text, nil
}

// Reload drops every cached template.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.entries = make(map[string]promptEntry)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+promptExt)
}

// read returns the cached text unless the file changed since it was read.
func (s *PromptStore) read(name string) (string, error) {
	path := s.path(name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	cached, ok := s.entries[name]
	s.mu.Unlock()
	if ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	entry := promptEntry{
		text:    strings.TrimSpace(string(data)),
		size:    info.Size(),
		modTime: info.ModTime(),
	}

	s.mu.Lock()
	s.entries[name] = entry
	s.mu.Unlock()
	return entry.text, nil
}

// seed writes the built-in templates and a README for files not yet present.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.seedErr = err
		return
	}
	files := map[string]string{"README.md": promptReadme}
	for name, content := range defaultPrompts {
		files[name+promptExt] = content
	}
	for file, content := range files {
		path := filepath.Join(s.dir, file)
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			s.seedErr = fmt.Errorf("write %s: %w", file, err)
			return
		}
	}
}

// countVerbs counts %s verbs, ignoring escaped percent signs.
func countVerbs(template string) int {
	return strings.Count(strings.ReplaceAll(template, "%%", ""), "%s")
}

const promptReadme = `# ragpipe prompts

Templates sent to the answer backends. Edits apply to the next question,
including in a running "ragpipe watch" or "ragpipe mcp".

- rag_answer.txt: the answer prompt. It takes two %s placeholders, the
  retrieved passages first and the question second. A file with any other
  number of placeholders is ignored in favour of the built-in template.
- structured_output.txt: the JSON reply format appended to every answer
  prompt. It takes no placeholder. Keep the keys answer, citations and
  claims: replies without them are answered as plain text.

Delete a file to restore its built-in version.
`
