// Package chunker splits extracted document text into overlapping,
// bounded-size segments for embedding.
package chunker

import "strings"

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// separators in preference order: paragraph, line, sentence, word. The
// empty separator is the hard character cut of last resort.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunk is one surviving segment. Index is dense and zero-based over the
// segments left after blank filtering.
type Chunk struct {
	Content  string
	Index    int
	Metadata map[string]any
}

// Split cuts text into chunks of at most size runes with the given overlap,
// preferring larger semantic boundaries before falling back to a hard cut.
// Blank segments are dropped and indices reassigned densely. Empty input
// yields an empty result.
func Split(text string, size, overlap int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}

	segments := splitRecursive(text, size, separators)
	merged := mergeSegments(segments, size, overlap)

	chunks := make([]Chunk, 0, len(merged))
	for _, m := range merged {
		content := strings.TrimSpace(m)
		if content == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Content:  content,
			Index:    len(chunks),
			Metadata: map[string]any{},
		})
	}
	return chunks
}

// splitRecursive breaks text into pieces no longer than size runes, trying
// each separator in turn and keeping the separator attached to the piece
// before it.
func splitRecursive(text string, size int, seps []string) []string {
	if runeLen(text) <= size {
		return []string{text}
	}

	sep := seps[0]
	if sep == "" {
		return hardCut(text, size)
	}

	var out []string
	for _, piece := range strings.SplitAfter(text, sep) {
		if piece == "" {
			continue
		}
		if runeLen(piece) <= size {
			out = append(out, piece)
			continue
		}
		out = append(out, splitRecursive(piece, size, seps[1:])...)
	}
	return out
}

func hardCut(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// mergeSegments greedily packs pieces into chunks of at most size runes,
// seeding each new chunk with the tail of the previous one for overlap.
func mergeSegments(segments []string, size, overlap int) []string {
	var (
		out    []string
		buffer string
	)
	for _, seg := range segments {
		if buffer != "" && runeLen(buffer)+runeLen(seg) > size {
			out = append(out, buffer)
			buffer = tailRunes(buffer, overlap)
			if runeLen(buffer)+runeLen(seg) > size {
				buffer = tailRunes(buffer, size-runeLen(seg))
			}
		}
		buffer += seg
	}
	if buffer != "" {
		out = append(out, buffer)
	}
	return out
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

func runeLen(s string) int {
	return len([]rune(s))
}
