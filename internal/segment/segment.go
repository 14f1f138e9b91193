// Package segment splits raw input text into ordered slide-sized chunks,
// either deterministically on paragraph boundaries or through one holistic
// model call.
package segment

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/slaide-studio/slaide/internal/models"
)

var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// Manual splits raw text on blank-line boundaries (two or more consecutive
// newlines). Each paragraph becomes one chunk in original order with exact
// source offsets. Deterministic by construction: the same input always
// yields the same boundaries. Image linking is a separate explicit action.
func Manual(rawText string) []models.ContentChunk {
	var chunks []models.ContentChunk

	pos := 0
	for _, loc := range paragraphBreak.FindAllStringIndex(rawText, -1) {
		if seg := rawText[pos:loc[0]]; strings.TrimSpace(seg) != "" {
			chunks = append(chunks, newChunk(rawText, pos, loc[0], len(chunks)))
		}
		pos = loc[1]
	}
	if seg := rawText[pos:]; strings.TrimSpace(seg) != "" {
		chunks = append(chunks, newChunk(rawText, pos, len(rawText), len(chunks)))
	}

	return chunks
}

// newChunk trims surrounding whitespace from rawText[start:end] while keeping
// the source span pointing at exactly the retained bytes.
func newChunk(rawText string, start, end, ordinal int) models.ContentChunk {
	for start < end && unicode.IsSpace(rune(rawText[start])) {
		start++
	}
	for end > start && unicode.IsSpace(rune(rawText[end-1])) {
		end--
	}
	return models.ContentChunk{
		ID:          fmt.Sprintf("chunk_%d", ordinal+1),
		Text:        rawText[start:end],
		SourceStart: start,
		SourceEnd:   end,
	}
}

// LinkImage attaches an image to a chunk. The link set is unique; relinking
// the same image is a no-op.
func LinkImage(chunk *models.ContentChunk, imageID string) {
	for _, id := range chunk.LinkedImages {
		if id == imageID {
			return
		}
	}
	chunk.LinkedImages = append(chunk.LinkedImages, imageID)
}
