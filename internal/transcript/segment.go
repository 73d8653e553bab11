package transcript

import (
	"regexp"
	"strings"
)

// Chunk is one independently classifiable transcript fragment. Action is set
// when the fragment inherited the order word of its parent sentence; in that
// case Text already carries the word prepended.
type Chunk struct {
	Text   string
	Action string
}

var (
	sentenceBoundary = regexp.MustCompile(`[.?!\n]`)
	conjunction      = regexp.MustCompile(`(?i)\b(?:and|&|plus|along with|with|as well as|also)\b|,`)
)

// Segmenter splits transcripts into chunks using a fixed vocabulary.
type Segmenter struct {
	vocab Vocabulary
}

// NewSegmenter creates a segmenter over the given vocabulary.
func NewSegmenter(vocab Vocabulary) *Segmenter {
	return &Segmenter{vocab: vocab}
}

// Segment splits a transcript into chunks. Sentences are split on
// `.`, `?`, `!` and newline, then further on conjunction markers and commas
// so that each test mention lands in its own chunk. A sentence's first
// order-action word is propagated to subparts that lack one, so
// "check CBC and RBS" yields "check CBC" and "check RBS". Chunk order
// follows the transcript left to right; later negations must be able to
// cancel matches recorded by earlier chunks.
func (sg *Segmenter) Segment(transcript string) []Chunk {
	var chunks []Chunk

	for _, sentence := range sentenceBoundary.Split(transcript, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		action := sg.vocab.FindAction(Normalize(sentence))

		for _, part := range conjunction.Split(sentence, -1) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			chunk := Chunk{Text: part}
			if action != "" && !sg.vocab.HasAction(Normalize(part)) {
				chunk.Text = action + " " + part
				chunk.Action = action
			}
			chunks = append(chunks, chunk)
		}
	}

	return chunks
}
