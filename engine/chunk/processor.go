package chunk

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// separators orders split boundaries from most to least semantic. Text that
// cannot be bounded at any level falls through to fixed-size windows.
var separators = []string{"\n\n", "\n", ". ", " "}

// Processor splits document text into ordered, overlapping passages.
// Output is a pure function of the input text and the configured settings.
type Processor struct {
	size    int
	overlap int
}

// NewProcessor builds a processor with validated settings.
func NewProcessor(settings Settings) (*Processor, error) {
	if settings.Size <= 0 {
		return nil, errors.New("chunk: size must be greater than zero")
	}
	if settings.Overlap <= 0 {
		return nil, errors.New("chunk: overlap must be greater than zero")
	}
	if settings.Overlap >= settings.Size {
		return nil, fmt.Errorf("chunk: overlap %d must be smaller than size %d", settings.Overlap, settings.Size)
	}
	return &Processor{size: settings.Size, overlap: settings.Overlap}, nil
}

// Split segments text into passages. Size and overlap are measured in
// characters, never bytes, so multibyte runes are never cut apart. Each
// passage core stays within the configured size; every passage after the
// first is prefixed with the tail of its predecessor's core so neighboring
// passages share context.
func (p *Processor) Split(text string) []string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= p.size {
		return []string{text}
	}
	units := p.split(text, 0)
	out := make([]string, len(units))
	for i, unit := range units {
		if i == 0 {
			out[i] = unit
			continue
		}
		out[i] = tailRunes(units[i-1], p.overlap) + " " + unit
	}
	return out
}

// tailRunes returns the last n characters of s.
func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// split applies the separator at the given hierarchy level, greedily packing
// consecutive segments into size-bounded units. Segments that are too large
// on their own recurse into the next level; past the last level the text is
// cut into fixed windows.
func (p *Processor) split(text string, level int) []string {
	if level >= len(separators) {
		return p.windows(text)
	}
	sep := separators[level]
	parts := strings.Split(text, sep)
	units := make([]string, 0, len(parts))
	buf := ""
	for _, part := range parts {
		candidate := part
		if buf != "" {
			candidate = buf + sep + part
		}
		if utf8.RuneCountInString(candidate) <= p.size {
			buf = candidate
			continue
		}
		if buf != "" {
			units = append(units, buf)
		}
		if utf8.RuneCountInString(part) > p.size {
			sub := p.split(part, level+1)
			if len(sub) == 0 {
				buf = ""
				continue
			}
			units = append(units, sub[:len(sub)-1]...)
			buf = sub[len(sub)-1]
			continue
		}
		buf = part
	}
	if buf != "" {
		units = append(units, buf)
	}
	return units
}

// windows cuts text into consecutive slices of at most size characters,
// advancing by size-overlap so each window carries forward part of the
// previous one. Cuts land on rune boundaries.
func (p *Processor) windows(text string) []string {
	runes := []rune(text)
	step := p.size - p.overlap
	units := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + p.size
		if end > len(runes) {
			end = len(runes)
		}
		units = append(units, string(runes[start:end]))
	}
	return units
}
