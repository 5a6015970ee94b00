package migrate

import "unicode/utf16"

// Contentful Text fields hold at most 50,000 characters, counted in UTF-16
// code units, so long bodies are spread over a fixed set of fields.
const (
	MaxChunkChars = 49000
	MaxChunks     = 4
)

var bodyFieldIDs = [MaxChunks]string{"bodyHtml", "bodyHtml2", "bodyHtml3", "bodyHtml4"}

// SplitChunks slices s into consecutive parts of at most size UTF-16 code
// units, keeping no more than limit parts. A surrogate pair is never split:
// a rune that would overflow a part starts the next one. truncated reports
// whether anything past the last kept part was dropped. An HTML tag may be
// split across two parts.
func SplitChunks(s string, size, limit int) (chunks []string, truncated bool) {
	if s == "" || limit <= 0 {
		return nil, s != ""
	}
	if size <= 0 {
		return []string{s}, false
	}

	start, units := 0, 0
	for i, r := range s {
		n := utf16Len(r)
		if units > 0 && units+n > size {
			chunks = append(chunks, s[start:i])
			if len(chunks) == limit {
				return chunks, true
			}
			start, units = i, 0
		}
		units += n
	}
	return append(chunks, s[start:]), false
}

// utf16Len is the number of UTF-16 code units r occupies. Invalid bytes
// decode to U+FFFD and count as one.
func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// UTF16Len is the length of s as Contentful and JavaScript measure it.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Len(r)
	}
	return n
}
