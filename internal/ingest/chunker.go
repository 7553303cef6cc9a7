// Package ingest turns raw document text into embedded, indexed chunks.
package ingest

import (
	"strconv"
	"strings"
)

// Piece is one chunk of text with its page of origin (0 when unknown).
type Piece struct {
	Content string
	Page    int
}

// Chunker splits text into overlapping chunks by character count,
// breaking on word boundaries and tracking page markers.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. size is the target chunk length in
// characters; overlap is how many trailing characters repeat at the
// start of the next chunk.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks text. Page markers are stripped from the output and
// recorded as the page of every chunk that starts after them.
func (c *Chunker) Split(text string) []Piece {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var pieces []Piece
	var current []string
	currentLen := 0
	page := 0
	chunkPage := 0
	fresh := 0 // words added since the last flush

	flush := func() {
		if len(current) == 0 || fresh == 0 {
			return
		}
		pieces = append(pieces, Piece{
			Content: strings.Join(current, " "),
			Page:    chunkPage,
		})

		// Seed the next chunk with the overlap tail.
		var tail []string
		tailLen := 0
		for i := len(current) - 1; i >= 0 && tailLen < c.overlap; i-- {
			tail = append([]string{current[i]}, tail...)
			tailLen += len(current[i]) + 1
		}
		current = tail
		currentLen = tailLen
		chunkPage = page
		fresh = 0
	}

	i := 0
	for i < len(words) {
		if p, skip := parsePageMarker(words, i); skip > 0 {
			page = p
			if fresh == 0 {
				chunkPage = p
			}
			i += skip
			continue
		}

		current = append(current, words[i])
		currentLen += len(words[i]) + 1
		fresh++
		if currentLen >= c.size {
			flush()
		}
		i++
	}
	flush()

	return pieces
}

// parsePageMarker recognizes the two-word form "[Pagina N]" at position
// i and returns the page number and how many words to skip.
func parsePageMarker(words []string, i int) (page, skip int) {
	if words[i] != "[Pagina" || i+1 >= len(words) {
		return 0, 0
	}
	next := words[i+1]
	if !strings.HasSuffix(next, "]") {
		return 0, 0
	}
	p, err := strconv.Atoi(strings.TrimSuffix(next, "]"))
	if err != nil {
		return 0, 0
	}
	return p, 2
}
