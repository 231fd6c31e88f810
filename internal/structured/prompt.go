package structured

import "strings"

// PromptSuffix asks the model for the JSON shape that Parse accepts.
const PromptSuffix = `

IMPORTANT: Tu DOIS répondre UNIQUEMENT au format JSON suivant, sans aucun autre texte.

Règles pour les citations:
- Si les documents contiennent la réponse, ajoute les citations correspondantes.
- Si l'information n'est pas dans les documents, laisse "citations" vide [].
- N'ajoute aucune citation quand tu indiques qu'il n'y a pas d'information.

Règles de style:
- Quand tu cites des documents, commence ta réponse par "C'est très simple, ".
- Utilise <br> pour les retours à la ligne.

Format:
{
  "answer": "ta réponse complète",
  "citations": [{"doc_id": "nom_du_document", "page": "numéro_de_page"}],
  "claims": [{"text": "affirmation", "citations": [{"doc_id": "nom_du_document", "page": "numéro_de_page"}]}]
}

Réponse JSON:`

// WithSuffix appends the JSON instruction to a prompt, separated by a blank line.
// An empty suffix selects PromptSuffix.
func WithSuffix(prompt, suffix string) string {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		suffix = strings.TrimSpace(PromptSuffix)
	}
	return strings.TrimRight(prompt, " \t\n") + "\n\n" + suffix
}
