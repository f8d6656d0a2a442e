package operation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// TrustedDocumentsClient resolves a persisted-query hash to document text.
// Implementations may be backed by a CDN-fetched manifest, a database, or an
// in-memory map populated at deploy time — spec.md §4.2 leaves the backing
// store open, only fixing the protocol.
type TrustedDocumentsClient interface {
	Lookup(ctx context.Context, hash string) (document string, ok bool, err error)
}

// PersistedQueryExtension mirrors the `extensions.persistedQuery` object the
// Automatic Persisted Queries protocol (spec.md §6, §8.5) attaches to a
// request.
type PersistedQueryExtension struct {
	Version    int    `json:"version"`
	SHA256Hash string `json:"sha256Hash"`
}

// ResolveDocument implements the APQ handshake: a hash-only request is
// looked up in client, a hash+document request is verified against its own
// hash. ResolveDocument does not register the document itself; the HTTP
// handler in internal/transport registers it afterwards when its client is
// an *InMemoryTrustedDocuments.
func ResolveDocument(ctx context.Context, client TrustedDocumentsClient, ext *PersistedQueryExtension, document string) (string, error) {
	if ext == nil {
		return document, nil
	}
	if ext.Version != 1 {
		return "", ErrPersistedQueryVersionUnsupported
	}
	if document == "" {
		doc, ok, err := client.Lookup(ctx, ext.SHA256Hash)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrPersistedQueryNotFound
		}
		return doc, nil
	}
	if sha256Hex(document) != ext.SHA256Hash {
		return "", parseErr("provided sha256Hash does not match hash of document")
	}
	return document, nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// InMemoryTrustedDocuments is a TrustedDocumentsClient backed by an
// in-process map; Register adds a document under its SHA-256 hex hash.
type InMemoryTrustedDocuments struct {
	docs map[string]string
}

func NewInMemoryTrustedDocuments() *InMemoryTrustedDocuments {
	return &InMemoryTrustedDocuments{docs: map[string]string{}}
}

func (c *InMemoryTrustedDocuments) Lookup(_ context.Context, hash string) (string, bool, error) {
	doc, ok := c.docs[hash]
	return doc, ok, nil
}

func (c *InMemoryTrustedDocuments) Register(document string) string {
	hash := sha256Hex(document)
	c.docs[hash] = document
	return hash
}
