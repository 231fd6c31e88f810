// Package hasher computes the digests that make ingestion idempotent:
// per-chunk content fingerprints, whole-file hashes and stable point IDs.
package hasher

import (
	"crypto/md5" //nolint:gosec // G501: fingerprints detect duplicates, not tampering.
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlockSize is the read size used when hashing files.
const BlockSize = 4096

// pointIDMask keeps point IDs within the signed 64-bit range so they
// survive storage engines that only have signed integers.
const pointIDMask = 1<<63 - 1

// Fingerprint returns the hex digest identifying a chunk's content at a
// given source and page. Equal fingerprints mean duplicate chunks.
func Fingerprint(content, source string, page int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%d", content, source, page))) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// FileHash returns the hex SHA-256 of the file at path, reading it in
// BlockSize blocks.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReaderHash(f)
}

// ReaderHash returns the hex SHA-256 of everything read from r.
func ReaderHash(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, BlockSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PointID derives the stable vector store key of a chunk from the file
// stem, page, chunk index and the first 8 characters of its fingerprint.
// The value is identical across runs and processes.
func PointID(stem string, page, chunkIndex int, fingerprint string) uint64 {
	prefix := fingerprint
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	key := fmt.Sprintf("%s_p%d_c%d_%s", stem, page, chunkIndex, prefix)
	sum := sha256.Sum256([]byte(key))
	return binary.BigEndian.Uint64(sum[:8]) & pointIDMask
}

// Stem returns the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
