// Package fileid derives stable identifiers from document content for cache
// keys.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// HashFile returns the hex SHA-256 of the file's content. The same bytes
// always yield the same hash, so re-submitting an unchanged document hits the
// parse cache no matter where the file lives.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PairHash combines two document hashes into one comparison cache key. Order
// matters: the contractor document comes first.
func PairHash(sourceHash, targetHash string) string {
	h := sha256.Sum256([]byte(sourceHash + ":" + targetHash))
	return hex.EncodeToString(h[:])
}
