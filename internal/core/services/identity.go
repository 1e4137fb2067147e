package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/custodia-labs/docket/internal/core/domain"
)

// DocumentNamespace scopes document identifiers.
var DocumentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:docket:document"))

// DocumentID derives the stable identifier for a file's content under one
// application reference. Identical bytes under the same reference always
// yield the same identifier.
func DocumentID(applicationRef, fileHash string) string {
	return uuid.NewSHA1(DocumentNamespace, []byte(applicationRef+"\x00"+fileHash)).String()
}

// ChunkID derives a chunk identifier from its document, dominant page and position.
func ChunkID(documentID string, dominantPage, index int) string {
	ns, err := uuid.Parse(documentID)
	if err != nil {
		ns = uuid.NewSHA1(DocumentNamespace, []byte(documentID))
	}
	return uuid.NewSHA1(ns, []byte(fmt.Sprintf("p%d:c%d", dominantPage, index))).String()
}

// HashFile returns the hex sha256 digest of the file's bytes.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFileNotFound, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", domain.ErrFileNotFound, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
