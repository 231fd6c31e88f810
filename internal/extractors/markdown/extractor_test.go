package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".md", ".markdown"}, New().Extensions())
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"heading", "# Titre\n\nTexte", "Titre\n\nTexte"},
		{"link", "Voir [la notice](http://x/y.pdf).", "Voir la notice."},
		{"image", "Avant ![logo](a.png) après", "Avant  après"},
		{"emphasis", "Un **mot** et un *autre*", "Un mot et un autre"},
		{"list", "- un\n* deux\n+ trois", "un\ndeux\ntrois"},
		{"quote", "> cité", "cité"},
		{"rule", "a\n\n---\n\nb", "a\n\nb"},
		{"code block body kept", "```go\nx := 1\n```", "x := 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Strip(tt.input))
		})
	}
}

func TestExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.md")
	require.NoError(t, os.WriteFile(path, []byte("# Guide\n\nInstaller **avant** usage."), 0o600))

	pages, err := New().Extract(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, "Guide\n\nInstaller avant usage.", pages[0].Text)
}

func TestExtract_OnlyMarkup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.md")
	require.NoError(t, os.WriteFile(path, []byte("---\n\n![x](y.png)\n"), 0o600))

	pages, err := New().Extract(context.Background(), path)

	require.NoError(t, err)
	assert.Empty(t, pages)
}
