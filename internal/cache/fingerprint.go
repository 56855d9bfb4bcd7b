package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
	"strings"
)

// Fingerprint derives the cache key for one unit of work. The operation,
// the raw content and every parameter are length-prefixed before hashing so
// that no two distinct inputs share a byte stream. Parameter keys are
// lower-cased and sorted; values are trimmed.
func Fingerprint(operation, content string, params map[string]string) string {
	h := sha256.New()
	writeField(h, operation)
	writeField(h, content)

	keys := make([]string, 0, len(params))
	canon := make(map[string]string, len(params))
	for k, v := range params {
		ck := strings.ToLower(strings.TrimSpace(k))
		keys = append(keys, ck)
		canon[ck] = strings.TrimSpace(v)
	}
	sort.Strings(keys)

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(keys)))
	h.Write(n[:])
	for _, k := range keys {
		writeField(h, k)
		writeField(h, canon[k])
	}

	return operation + ":" + hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}
