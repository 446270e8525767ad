package flatten

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// identityNamespace prefixes every derived node identity. Objects can still
// be looked up by their original IRI through the xid field in the store.
const identityNamespace = "janes"

// NodeIdentity derives the stable short identifier for a raw IRI.
// The IRI is split at its final path segment: the segment becomes the local
// id (lowercased), the last component of the remaining path becomes the type
// prefix, and the first 8 hex characters of a SHA-1 over the full IRI keep
// distinct IRIs from colliding. Pure function: the same IRI always yields the
// same identity.
func NodeIdentity(rawID string) string {
	container, local := "", rawID
	if i := strings.LastIndex(rawID, "/"); i >= 0 {
		container, local = rawID[:i], rawID[i+1:]
	}

	prefix := container
	if j := strings.LastIndex(container, "/"); j >= 0 {
		prefix = container[j+1:]
	}

	sum := sha1.Sum([]byte(rawID))
	digest := hex.EncodeToString(sum[:])

	return fmt.Sprintf("%s-%s-%s-%s", identityNamespace, prefix, strings.ToLower(local), digest[:8])
}

// TypeLabel converts an ontology type IRI into a short type qualifier:
// the final path segment, hyphenated and lowercased. Callers substitute
// MissingType when the record carries no type at all.
func TypeLabel(typeURI string) string {
	seg := typeURI
	if i := strings.LastIndex(typeURI, "/"); i >= 0 {
		seg = typeURI[i+1:]
	}
	return strings.ToLower(ToHyphenated(seg))
}

// MissingType is the sentinel type label for records without a usable type.
const MissingType = "*"
