package object

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"saas-backend/internal/shared/util"
)

// ErrNotFound is returned when a storage key does not exist.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys that escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// ObjectStore defines the contract for saving and retrieving binary objects.
// Keys have the form "<namespace>/<random>_<file name>".
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}

// Presigner is implemented by stores that can hand out direct URLs.
type Presigner interface {
	PresignPut(ctx context.Context, storageKey, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, storageKey string, ttl time.Duration) (string, error)
}

// Namespace maps an organization ID to its key prefix.
func Namespace(organizationID string) string {
	return util.HashKey(organizationID)
}

// OwnedBy reports whether storageKey lives in the organization's namespace.
func OwnedBy(storageKey, organizationID string) bool {
	clean, err := CleanKey(storageKey)
	if err != nil {
		return false
	}
	return strings.HasPrefix(clean, Namespace(organizationID)+"/")
}

// NewKey builds a fresh key under namespace for fileName.
func NewKey(namespace, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(namespace, randomID()+"_"+name), nil
}

// CleanKey normalizes a key and rejects traversal or absolute paths.
func CleanKey(storageKey string) (string, error) {
	clean := path.Clean(strings.TrimSpace(storageKey))
	if clean == "." || strings.HasPrefix(clean, "..") || strings.HasPrefix(clean, "/") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

// Sniff reads the first 512 bytes of r to detect its content type and returns
// a reader that replays them.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var sniff [512]byte
	n, err := io.ReadFull(r, sniff[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	head := append([]byte(nil), sniff[:n]...)
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
