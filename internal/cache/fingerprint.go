package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"autogallery/internal/filesystem"
)

// ArtifactExt is the extension of every thumbnail artifact.
const ArtifactExt = ".jpg"

// TempPrefix starts the name of every artifact still being written. Such
// files are hidden and never mistaken for finished artifacts.
const TempPrefix = ".partial-"

// fingerprintLen is the hex length of a SHA-256 digest.
const fingerprintLen = sha256.Size * 2

// Fingerprint returns the cache key for the file at path: a hex SHA-256 of
// the absolute path and the modification time in nanoseconds. The same file
// with the same mtime always yields the same key, across restarts.
//
// A path that does not exist (or vanished) returns an error matching
// filesystem.ErrNotFound.
func Fingerprint(path string) (string, error) {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, filesystem.Classify(err))
	}
	return FingerprintInfo(path, info)
}

// FingerprintInfo is Fingerprint for callers that already hold the file's
// info, saving a stat.
func FingerprintInfo(path string, info fs.FileInfo) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}

	h := sha256.New()
	h.Write([]byte(abs))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ArtifactName returns the file name for a fingerprint.
func ArtifactName(fingerprint string) string {
	return fingerprint + ArtifactExt
}

// IsArtifactName reports whether name looks like something this package
// wrote. Orphan collection never touches anything else.
func IsArtifactName(name string) bool {
	base, ok := strings.CutSuffix(name, ArtifactExt)
	if !ok || len(base) != fingerprintLen {
		return false
	}
	_, err := hex.DecodeString(base)
	return err == nil
}
