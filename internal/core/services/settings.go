package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driven"
	"github.com/custodia-labs/ragpipe/internal/core/ports/driving"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes the environment variable form of every setting key:
// "retrieval.top_k" is overridden by RAGPIPE_RETRIEVAL_TOP_K.
const EnvPrefix = "RAGPIPE_"

// maskedValue replaces secrets in Values.
const maskedValue = "********"

// wellKnownEnv maps conventional provider variables onto setting keys.
// They are applied before the RAGPIPE_ variables, which win.
//
//nolint:gosec // G101: These are variable names, not credentials.
var wellKnownEnv = []struct {
	name string
	keys []string
}{
	{"OLLAMA_HOST", []string{"embedding.base_url", "llm.mistral.base_url"}},
	{"OPENAI_API_KEY", []string{"embedding.api_key"}},
	{"GROQ_API_KEY", []string{"llm.groq.api_key"}},
	{"ANTHROPIC_API_KEY", []string{"llm.anthropic.api_key"}},
}

// setting binds a dotted config key to a field of domain.AppSettings.
type setting struct {
	key    string
	secret bool
	parse  func(raw string) (any, error)
	apply  func(s *domain.AppSettings, v any)
	show   func(s *domain.AppSettings) string
}

// SettingsService resolves application settings from defaults, the config
// file and the environment, in increasing precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
	settings    map[string]setting
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
		settings:    make(map[string]setting),
	}
	for _, st := range settingTable() {
		s.settings[st.key] = st
	}
	return s
}

// SetLookupEnv replaces the environment lookup.
func (s *SettingsService) SetLookupEnv(fn func(string) (string, bool)) {
	s.lookupEnv = fn
}

// LoadDotEnv loads variables from .env files into the process environment.
// Variables already set are kept. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
		logger.Debug("loaded environment from %s", p)
	}
	return nil
}

// Get retrieves current application settings. Invalid stored or
// environment values are ignored in favour of the lower layer.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()
	explicit := make(map[string]bool)

	for _, key := range s.configStore.Keys() {
		st, ok := s.settings[key]
		if !ok {
			continue
		}
		v, _ := s.configStore.Get(key)
		if s.applyRaw(&settings, st, fmt.Sprint(v), "config") {
			explicit[key] = true
		}
	}

	for _, env := range wellKnownEnv {
		raw, ok := s.lookupEnv(env.name)
		if !ok || raw == "" {
			continue
		}
		if env.name == "OLLAMA_HOST" {
			raw = ollamaURL(raw)
		}
		for _, key := range env.keys {
			if s.applyRaw(&settings, s.settings[key], raw, env.name) {
				explicit[key] = true
			}
		}
	}

	for _, key := range s.Keys() {
		name := EnvName(key)
		raw, ok := s.lookupEnv(name)
		if !ok {
			continue
		}
		if s.applyRaw(&settings, s.settings[key], raw, name) {
			explicit[key] = true
		}
	}

	if !explicit["embedding.dimensions"] {
		if dims, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
			settings.Embedding.Dimensions = dims
		}
	}

	return &settings, nil
}

func (s *SettingsService) applyRaw(settings *domain.AppSettings, st setting, raw, origin string) bool {
	v, err := st.parse(raw)
	if err != nil {
		logger.Warn("ignoring %s from %s: %v", st.key, origin, err)
		return false
	}
	st.apply(settings, v)
	return true
}

// Set validates and persists a single setting.
func (s *SettingsService) Set(key, value string) error {
	st, ok := s.settings[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	v, err := st.parse(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	switch v.(type) {
	case int, float64, bool, string:
	default:
		v = fmt.Sprint(v)
	}
	if err := s.configStore.Set(key, v); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := s.configStore.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// Keys returns every settable key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(s.settings))
	for k := range s.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns the effective value of every setting, secrets masked.
func (s *SettingsService) Values() (map[string]string, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(s.settings))
	for key, st := range s.settings {
		v := st.show(settings)
		if st.secret && v != "" {
			v = maskedValue
		}
		out[key] = v
	}
	return out, nil
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// EnvName returns the environment variable overriding a setting key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ollamaURL accepts OLLAMA_HOST in its "host:port" form.
func ollamaURL(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "http://" + host
}

func settingTable() []setting {
	table := []setting{
		field("chunking.size", parsePositive, func(s *domain.AppSettings) *int { return &s.Chunking.Size }),
		field("chunking.overlap", parseNonNegative, func(s *domain.AppSettings) *int { return &s.Chunking.Overlap }),
		field("retrieval.top_k", parsePositive, func(s *domain.AppSettings) *int { return &s.Retrieval.TopK }),
		field("retrieval.rerank_top_k", parsePositive, func(s *domain.AppSettings) *int { return &s.Retrieval.RerankTopK }),
		field("retrieval.use_reranking", strconv.ParseBool, func(s *domain.AppSettings) *bool { return &s.Retrieval.UseReranking }),

		field("embedding.provider", parseAIProvider, func(s *domain.AppSettings) *domain.AIProvider { return &s.Embedding.Provider }),
		field("embedding.model", parseString, func(s *domain.AppSettings) *string { return &s.Embedding.Model }),
		field("embedding.base_url", parseString, func(s *domain.AppSettings) *string { return &s.Embedding.BaseURL }),
		secret(field("embedding.api_key", parseString, func(s *domain.AppSettings) *string { return &s.Embedding.APIKey })),
		field("embedding.dimensions", parsePositive, func(s *domain.AppSettings) *int { return &s.Embedding.Dimensions }),
		field("embedding.requests_per_second", parseNonNegativeFloat, func(s *domain.AppSettings) *float64 {
			return &s.Embedding.RequestsPerSecond
		}),

		field("reranker.enabled", strconv.ParseBool, func(s *domain.AppSettings) *bool { return &s.Reranker.Enabled }),
		field("reranker.model", parseString, func(s *domain.AppSettings) *string { return &s.Reranker.Model }),
		field("reranker.base_url", parseString, func(s *domain.AppSettings) *string { return &s.Reranker.BaseURL }),

		field("ingestion.batch_size", parsePositive, func(s *domain.AppSettings) *int { return &s.Ingestion.BatchSize }),
		field("ingestion.watch_interval", time.ParseDuration, func(s *domain.AppSettings) *time.Duration {
			return &s.Ingestion.WatchInterval
		}),

		field("storage.data_dir", parseString, func(s *domain.AppSettings) *string { return &s.Storage.DataDir }),

		field("llm.default", parseLLMProvider, func(s *domain.AppSettings) *domain.LLMProvider { return &s.DefaultProvider }),
	}

	for _, p := range domain.AllLLMProviders() {
		table = append(table,
			llmField(p, "provider", parseAIProvider, func(l *domain.LLMSettings) *domain.AIProvider { return &l.Provider }),
			llmField(p, "model", parseString, func(l *domain.LLMSettings) *string { return &l.Model }),
			llmField(p, "base_url", parseString, func(l *domain.LLMSettings) *string { return &l.BaseURL }),
			secret(llmField(p, "api_key", parseString, func(l *domain.LLMSettings) *string { return &l.APIKey })),
			llmField(p, "temperature", parseNonNegativeFloat, func(l *domain.LLMSettings) *float64 { return &l.Temperature }),
			llmField(p, "max_tokens", parsePositive, func(l *domain.LLMSettings) *int { return &l.MaxTokens }),
			llmField(p, "top_p", parseNonNegativeFloat, func(l *domain.LLMSettings) *float64 { return &l.TopP }),
		)
	}
	return table
}

func field[T any](key string, parse func(string) (T, error), ptr func(*domain.AppSettings) *T) setting {
	return setting{
		key: key,
		parse: func(raw string) (any, error) {
			return parse(strings.TrimSpace(raw))
		},
		apply: func(s *domain.AppSettings, v any) { *ptr(s) = v.(T) },
		show:  func(s *domain.AppSettings) string { return fmt.Sprint(*ptr(s)) },
	}
}

func llmField[T any](p domain.LLMProvider, name string, parse func(string) (T, error), ptr func(*domain.LLMSettings) *T) setting {
	return setting{
		key: "llm." + string(p) + "." + name,
		parse: func(raw string) (any, error) {
			return parse(strings.TrimSpace(raw))
		},
		apply: func(s *domain.AppSettings, v any) {
			l := s.LLMs[p]
			*ptr(&l) = v.(T)
			s.LLMs[p] = l
		},
		show: func(s *domain.AppSettings) string {
			l := s.LLMs[p]
			return fmt.Sprint(*ptr(&l))
		},
	}
}

func secret(st setting) setting {
	st.secret = true
	return st
}

func parseString(raw string) (string, error) {
	return raw, nil
}

func parsePositive(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func parseNonNegative(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}
	return n, nil
}

func parseNonNegativeFloat(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if f < 0 {
		return 0, fmt.Errorf("must not be negative, got %g", f)
	}
	return f, nil
}

func parseAIProvider(raw string) (domain.AIProvider, error) {
	p := domain.AIProvider(strings.ToLower(raw))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown provider %q (want ollama, openai or anthropic)", raw)
	}
	return p, nil
}

func parseLLMProvider(raw string) (domain.LLMProvider, error) {
	p := domain.LLMProvider(strings.ToLower(raw))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown llm provider %q", raw)
	}
	return p, nil
}
