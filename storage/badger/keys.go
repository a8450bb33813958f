package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types.
// No prefix is a prefix of another.
const (
	drugPrefix        = "drug:"
	articlePrefix     = "art:"
	articleDatePrefix = "artd:"
	vocabularyPrefix  = "voc:"
)

// makeDrugKey generates a key for a drug by natural id.
func makeDrugKey(id string) []byte {
	return []byte(drugPrefix + id)
}

// makeArticleKey generates a key for an article by ID.
// IDs are zero padded so key order equals numeric order.
func makeArticleKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", articlePrefix, id))
}

// makeArticleDateKey generates a composite key for the publication date index.
// Format: prefix:timestamp:id
func makeArticleDateKey(pubDate time.Time, id int64) []byte {
	prefixBytes := []byte(articleDatePrefix)
	buf := make([]byte, len(prefixBytes)+16) // 8 bytes for timestamp + 8 bytes for ID
	offset := copy(buf, prefixBytes)
	// Sign bit flipped so dates before 1970 (and the zero time) sort first
	binary.BigEndian.PutUint64(buf[offset:], uint64(pubDate.UnixMicro())^(1<<63))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// articleIDFromDateKey extracts the article ID from a date index key.
func articleIDFromDateKey(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(articleDatePrefix)+8:]))
}

// makeVocabularyKey generates a key for an indication term by code.
func makeVocabularyKey(code string) []byte {
	return []byte(vocabularyPrefix + code)
}
