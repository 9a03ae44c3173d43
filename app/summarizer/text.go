package summarizer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// DefaultChunkSize bounds each chunk sent to the model, in characters.
const DefaultChunkSize = 4000

var (
	// ErrInvalidPDF is returned when the input cannot be opened as a PDF.
	ErrInvalidPDF = errors.New("invalid PDF document")
	// ErrNoText is returned for PDFs without an extractable text layer.
	ErrNoText = errors.New("no text extracted from the PDF")
)

var sentenceBoundary = regexp.MustCompile(`\.\s+`)

// ExtractText returns the plain text of a PDF document.
func ExtractText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	if strings.TrimSpace(string(raw)) == "" {
		return "", ErrNoText
	}
	return string(raw), nil
}

// Chunk splits text on sentence boundaries into pieces of at most size
// characters. A sentence longer than size is cut at size.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := sentenceBoundary.Split(text, -1)

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for i, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if i < len(sentences)-1 {
			sentence += "."
		}

		for _, piece := range splitRunes(sentence, size) {
			pieceLen := utf8.RuneCountInString(piece)
			if currentLen > 0 && currentLen+1+pieceLen > size {
				flush()
			}
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(piece)
			currentLen += pieceLen
		}
	}
	flush()

	return chunks
}

func splitRunes(s string, size int) []string {
	if utf8.RuneCountInString(s) <= size {
		return []string{s}
	}

	var parts []string
	runes := []rune(s)
	for len(runes) > size {
		parts = append(parts, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
