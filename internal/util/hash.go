package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

func SHA256Hex(b []byte) string {
	x := sha256.Sum256(b)
	return hex.EncodeToString(x[:])
}

// ChunkID is stable for a (document, index, content) triple.
func ChunkID(documentID string, index int, content string) string {
	return SHA256Hex([]byte(fmt.Sprintf("%s:%d:%s", documentID, index, SHA256Hex([]byte(content)))))
}
