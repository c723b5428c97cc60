package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const keySep = ":"

// GenerateKey joins prefix and id into a namespaced key.
func GenerateKey(prefix string, id string) string {
	return prefix + keySep + id
}

// GenerateKeyWithParams appends each param to prefix, e.g. "bars:SPY:1260".
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, param := range params {
		b.WriteString(keySep)
		fmt.Fprint(&b, param)
	}
	return b.String()
}

// HashKey shortens an arbitrarily long key to 32 hex characters.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}
