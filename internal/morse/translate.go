// Package morse translates text into Morse notation.
//
// A Morse string uses three glyphs: '.', '-' and ' '. Each supported
// character becomes its table pattern verbatim, characters of a word are
// separated by LetterGap and words by WordGap. Characters missing from the
// table are dropped without error. A word with none of its characters in
// the table still takes its place, so the result may hold doubled, leading
// or trailing word gaps; a caller that gets an empty (after trimming)
// result has nothing it can encode.
package morse

import "strings"

// Separators between letters and words, in units of one space.
const (
	LetterGap = "   "
	WordGap   = "       "
)

// Translate converts text to a Morse string. The text is lowercased and
// split on Unicode whitespace. It is safe for concurrent use.
func Translate(text string) string {
	words := strings.Fields(strings.ToLower(text))

	encoded := make([]string, 0, len(words))
	for _, word := range words {
		letters := make([]string, 0, len(word))
		for _, r := range word {
			if p, ok := table[r]; ok {
				letters = append(letters, p)
			}
		}
		encoded = append(encoded, strings.Join(letters, LetterGap))
	}

	return strings.Join(encoded, WordGap)
}

// IsEmpty reports whether a translation produced nothing encodable.
func IsEmpty(morse string) bool {
	return strings.TrimSpace(morse) == ""
}

var captionReplacer = strings.NewReplacer("-", "—", ".", "·")

// Caption returns a display form of a Morse string with dashes drawn as
// em dashes and dots as middle dots.
func Caption(morse string) string {
	return captionReplacer.Replace(morse)
}
