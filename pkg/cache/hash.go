package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/bytedance/sonic"
)

// hashKey builds "prefix:sha256(parts)" from the JSON encoding of parts.
func hashKey(prefix string, parts ...any) string {
	data, _ := sonic.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data (64 characters).
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
