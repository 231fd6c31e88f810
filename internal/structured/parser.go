// Package structured turns raw LLM replies into validated answers with
// citations, and suppresses citations on answers that report missing
// information.
package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/custodia-labs/ragpipe/internal/core/domain"
	"github.com/custodia-labs/ragpipe/internal/logger"
)

const fence = "```"

// requiredKeys must all be present in a reply for it to be accepted.
var requiredKeys = []string{"answer", "citations", "claims"}

// noInfoPhrases are lower-case French phrases by which a model states that
// the context does not contain the answer.
var noInfoPhrases = []string{
	"il n'y a pas d'information",
	"aucune information",
	"pas d'information sur",
	"ne contient pas d'information",
	"n'est pas mentionné",
	"pas de mention",
	"contexte ne contient pas",
	"documents ne contiennent pas",
	"je ne trouve pas d'information",
	"il n'existe pas d'indication",
	"aucune indication",
	"pas d'indication sur",
	"ne présente pas d'information",
	"n'indique pas",
	"pas précisé",
	"non mentionné",
	"absent des documents",
}

var errMissingKeys = errors.New("missing required keys")

// NoInfoPhrases returns a copy of the phrases that mark an answer as reporting missing information.
func NoInfoPhrases() []string {
	out := make([]string, len(noInfoPhrases))
	copy(out, noInfoPhrases)
	return out
}

// IsNoInformation reports whether an answer states that the information is absent.
func IsNoInformation(answer string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range noInfoPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Parse never fails: a reply that cannot be validated becomes an answer
// made of the raw text with a single uncited claim.
func Parse(raw string) domain.StructuredAnswer {
	answer, err := parseStrict(raw)
	if err != nil {
		logger.Warn("structured: invalid reply, using raw text: %v", err)
		return Fallback(raw)
	}

	if IsNoInformation(answer.Answer) {
		logger.Debug("structured: no-information answer, dropping citations")
		answer.Citations = []domain.Citation{}
		answer.Claims = []domain.Claim{}
	}
	return answer
}

// Fallback builds the degenerate structure for an unparseable reply.
func Fallback(raw string) domain.StructuredAnswer {
	clean := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))
	return domain.StructuredAnswer{
		Answer:    clean,
		Citations: []domain.Citation{},
		Claims:    []domain.Claim{{Text: clean, Citations: []domain.Citation{}}},
	}
}

// Clean strips code fences and surrounding prose, leaving the span from
// the first '{' to the last '}' when there is one.
func Clean(raw string) string {
	text := raw
	if strings.Contains(text, fence) {
		text = stripFences(text)
	}
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		text = text[start : end+1]
	}
	return text
}

// stripFences keeps lines inside fenced blocks, plus lines outside them
// that carry JSON punctuation.
func stripFences(text string) string {
	var kept []string
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			inBlock = !inBlock
			continue
		}
		if inBlock || strings.ContainsAny(line, `{}"`) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// wireCitation accepts pages written as numbers or as strings.
type wireCitation struct {
	DocID string   `json:"doc_id"`
	Page  flexPage `json:"page"`
}

type wireClaim struct {
	Text      string         `json:"text"`
	Citations []wireCitation `json:"citations"`
}

// flexPage never fails on a well-formed JSON value: a page the model wrote
// loosely must not cost the whole answer. Strings yield their first run of
// digits ("3-4" and "p. 12" give 3 and 12), numbers are rounded to the
// nearest page, and anything else is page 0 (unknown).
type flexPage int

func (p *flexPage) UnmarshalJSON(b []byte) error {
	*p = 0
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		*p = flexPage(firstNumber(v))
	case float64:
		if v > 0 && v < math.MaxInt32 {
			*p = flexPage(math.Round(v))
		}
	}
	return nil
}

// firstNumber returns the first run of ASCII digits in s, or 0.
func firstNumber(s string) int {
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0
	}
	return n
}

func parseStrict(raw string) (domain.StructuredAnswer, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(Clean(raw)), &fields); err != nil {
		return domain.StructuredAnswer{}, fmt.Errorf("decode: %w", err)
	}
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			return domain.StructuredAnswer{}, fmt.Errorf("%w: %s", errMissingKeys, key)
		}
	}

	var out domain.StructuredAnswer
	if err := json.Unmarshal(fields["answer"], &out.Answer); err != nil {
		return domain.StructuredAnswer{}, fmt.Errorf("answer: %w", err)
	}

	var citations []wireCitation
	if err := json.Unmarshal(fields["citations"], &citations); err != nil {
		return domain.StructuredAnswer{}, fmt.Errorf("citations: %w", err)
	}
	var claims []wireClaim
	if err := json.Unmarshal(fields["claims"], &claims); err != nil {
		return domain.StructuredAnswer{}, fmt.Errorf("claims: %w", err)
	}

	out.Citations = convertCitations(citations)
	out.Claims = make([]domain.Claim, 0, len(claims))
	for _, c := range claims {
		out.Claims = append(out.Claims, domain.Claim{Text: c.Text, Citations: convertCitations(c.Citations)})
	}
	return out, nil
}

func convertCitations(in []wireCitation) []domain.Citation {
	out := make([]domain.Citation, 0, len(in))
	for _, c := range in {
		out = append(out, domain.Citation{DocID: c.DocID, Page: int(c.Page)})
	}
	return out
}
