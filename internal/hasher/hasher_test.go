package hasher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("contenu", "/docs/a.pdf", 1)

	// md5("contenu|/docs/a.pdf|1") as hex.
	assert.Len(t, fp, 32)
	assert.Equal(t, fp, Fingerprint("contenu", "/docs/a.pdf", 1))

	t.Run("each component matters", func(t *testing.T) {
		assert.NotEqual(t, fp, Fingerprint("contenu!", "/docs/a.pdf", 1))
		assert.NotEqual(t, fp, Fingerprint("contenu", "/docs/b.pdf", 1))
		assert.NotEqual(t, fp, Fingerprint("contenu", "/docs/a.pdf", 2))
	})
}

func TestFingerprint_KnownValue(t *testing.T) {
	// md5("a|b|1")
	assert.Equal(t, "33f5882a05818f772f3165f2f0c32467", Fingerprint("a", "b", 1))
}

func TestFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0600))

	got, err := FileHash(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
}

func TestFileHash_LargerThanBlock(t *testing.T) {
	content := strings.Repeat("0123456789", BlockSize)
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	fromFile, err := FileHash(path)
	require.NoError(t, err)
	fromReader, err := ReaderHash(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, fromReader, fromFile)
}

func TestFileHash_MissingFile(t *testing.T) {
	_, err := FileHash(filepath.Join(t.TempDir(), "absent.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPointID(t *testing.T) {
	fp := Fingerprint("x", "/a.txt", 1)
	id := PointID("a", 1, 1, fp)

	assert.Equal(t, id, PointID("a", 1, 1, fp), "must be stable")
	assert.Equal(t, id, PointID("a", 1, 1, fp[:8]), "only the prefix is used")
	assert.NotEqual(t, id, PointID("a", 1, 2, fp))
	assert.NotEqual(t, id, PointID("a", 2, 1, fp))
	assert.NotEqual(t, id, PointID("b", 1, 1, fp))
	assert.LessOrEqual(t, id, uint64(pointIDMask))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "rapport", Stem("/docs/rapport.pdf"))
	assert.Equal(t, "notes.v2", Stem("notes.v2.txt"))
	assert.Equal(t, "README", Stem("README"))
}
