package lockrec

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// idDelimiter joins the id components. Scope or job names containing the
// delimiter can in principle yield ambiguous ids; no escaping is performed.
const idDelimiter = "-"

// GenerateLockID returns the document id of a plain job lock. It is a pure
// function, so a worker can probe the store for a lock before one exists.
func GenerateLockID(scopeName, jobID string) string {
	return scopeName + idDelimiter + jobID
}

// GenerateResourceLockID returns the document id of a resource lock. The id
// embeds a url-safe unpadded base64 rendering of the 128-bit murmur3 hash of
// the payload's canonical encoding, so unrelated processes hashing equal
// content converge on the same lock record with no prior coordination.
func GenerateResourceLockID(scopeName, resourceType string, resource map[string]any) (string, error) {
	norm, err := normalizeResource(resource)
	if err != nil {
		return "", err
	}
	return resourceLockID(scopeName, resourceType, norm)
}

// resourceLockID derives the id from an already normalized payload.
func resourceLockID(scopeName, resourceType string, norm map[string]any) (string, error) {
	enc, err := encodeCanonical(norm)
	if err != nil {
		return "", err
	}
	h1, h2 := murmur3.Sum128(enc) // x64 variant, seed 0
	var digest [16]byte
	binary.BigEndian.PutUint64(digest[:8], h1)
	binary.BigEndian.PutUint64(digest[8:], h2)
	return scopeName + idDelimiter + resourceType + idDelimiter +
		base64.RawURLEncoding.EncodeToString(digest[:]), nil
}
