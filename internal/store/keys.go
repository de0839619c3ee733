package store

import (
	"strconv"
	"strings"
)

// Key categories
const (
	CategoryData    = "data"
	CategorySets    = "sets"
	CategorySpecial = "special"
)

// Special discriminators
const (
	idSequenceKey   = "__dogIdSequence"
	nameRegistryKey = "__dogsByName"
	photoSetPrefix  = "__dogPics"
)

// DefaultNamespace prefixes every key when no namespace is configured
const DefaultNamespace = "gomez-dogbot:store"

// KeyNamer maps (tenant, category, discriminator) to a storage key.
// Tenants and collection names are validated to be ':'-free, which keeps
// the delimited layout collision-free across tenants and categories.
type KeyNamer struct {
	prefix string
}

// NewKeyNamer creates a namer for one collection under namespace
func NewKeyNamer(namespace, collection string) KeyNamer {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return KeyNamer{prefix: namespace + ":dogdata:" + collection}
}

// Key builds <namespace>:dogdata:<collection>:<tenant>:<category>:<discriminator>
func (k KeyNamer) Key(tenant, category, discriminator string) string {
	var b strings.Builder
	b.Grow(len(k.prefix) + len(tenant) + len(category) + len(discriminator) + 3)
	b.WriteString(k.prefix)
	b.WriteByte(':')
	b.WriteString(tenant)
	b.WriteByte(':')
	b.WriteString(category)
	b.WriteByte(':')
	b.WriteString(discriminator)
	return b.String()
}

// DataKey is the primary record hash of a dog
func (k KeyNamer) DataKey(tenant string, id int64) string {
	return k.Key(tenant, CategoryData, strconv.FormatInt(id, 10))
}

// DataKeyPattern matches every record hash of tenant
func (k KeyNamer) DataKeyPattern(tenant string) string {
	return escapeGlob(k.DataKeyPrefix(tenant)) + "*"
}

// DataKeyPrefix is DataKey without the id
func (k KeyNamer) DataKeyPrefix(tenant string) string {
	return k.Key(tenant, CategoryData, "")
}

// IndexKey is the id set for one (field, value)
func (k KeyNamer) IndexKey(tenant, field, value string) string {
	return k.Key(tenant, CategorySets, field+":"+value)
}

// PhotoKey is the photo URL set of a dog
func (k KeyNamer) PhotoKey(tenant string, id int64) string {
	return k.Key(tenant, CategorySets, photoSetPrefix+":"+strconv.FormatInt(id, 10))
}

// IDSequenceKey is the tenant's id counter
func (k KeyNamer) IDSequenceKey(tenant string) string {
	return k.Key(tenant, CategorySpecial, idSequenceKey)
}

// NameRegistryKey is the tenant's set of in-use dog names
func (k KeyNamer) NameRegistryKey(tenant string) string {
	return k.Key(tenant, CategorySpecial, nameRegistryKey)
}

// escapeGlob quotes the characters SCAN MATCH treats specially
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
