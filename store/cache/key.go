package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Shape tells whether a cached value is a single record or a query result.
type Shape string

const (
	ShapeUnique Shape = "unique"
	ShapeList   Shape = "list"
)

const (
	// KeySeparator separates namespace, shape and the qualifier section.
	KeySeparator = ":"
	// QualifierSeparator joins qualifiers. Qualifier values must not contain it.
	QualifierSeparator = "|"
)

// BuildKey derives the cache key for a query in namespace.
// Empty qualifiers are dropped, so an absent filter and an omitted one map to the same key:
//
//	BuildKey("event", ShapeList)                 // "event:list:"
//	BuildKey("event", ShapeList, "", "HIGH")     // "event:list:HIGH"
//	BuildKey("watchlist", ShapeUnique, "abc")    // "watchlist:unique:abc"
func BuildKey(namespace string, shape Shape, qualifiers ...string) string {
	parts := make([]string, 0, len(qualifiers))
	for _, q := range qualifiers {
		if q != "" {
			parts = append(parts, q)
		}
	}

	var b strings.Builder
	b.WriteString(namespace)
	b.WriteString(KeySeparator)
	b.WriteString(string(shape))
	b.WriteString(KeySeparator)
	b.WriteString(strings.Join(parts, QualifierSeparator))
	return b.String()
}

// IsSafeQualifier reports whether q can be used as a qualifier as is. Values
// that contain the qualifier separator must be rejected or hashed by the caller.
func IsSafeQualifier(q string) bool {
	return !strings.Contains(q, QualifierSeparator)
}

// NamespacePrefix returns the prefix shared by every key in namespace.
func NamespacePrefix(namespace string) string {
	return namespace + KeySeparator
}

// HashQualifier turns a free-form value (a filter expression, say) into a
// qualifier that is safe to embed in a key. Empty input stays empty.
func HashQualifier(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])[:12]
}
