package documentsvc

import "unicode/utf8"

// SplitChunks splits text into consecutive chunks of at most size code points.
// Only the last chunk may be shorter. Empty text yields no chunks.
func SplitChunks(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/size+1)

	for len(text) > 0 {
		end, count := 0, 0
		for end < len(text) && count < size {
			_, width := utf8.DecodeRuneInString(text[end:])
			end += width
			count++
		}

		chunks = append(chunks, text[:end])
		text = text[end:]
	}

	return chunks
}
