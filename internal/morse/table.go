package morse

import "sort"

// Glyphs used in a Morse pattern.
const (
	Dot  = '.'
	Dash = '-'
)

// table maps a lowercase character to its Morse pattern. It is built once
// at package init and never written afterwards; all access goes through
// Lookup and Alphabet.
var table = map[rune]string{
	// Latin.
	'a': ".-",
	'b': "-...",
	'c': "-.-.",
	'd': "-..",
	'e': ".",
	'f': "..-.",
	'g': "--.",
	'h': "....",
	'i': "..",
	'j': ".---",
	'k': "-.-",
	'l': ".-..",
	'm': "--",
	'n': "-.",
	'o': "---",
	'p': ".--.",
	'q': "--.-",
	'r': ".-.",
	's': "...",
	't': "-",
	'u': "..-",
	'v': "...-",
	'w': ".--",
	'x': "-..-",
	'y': "-.--",
	'z': "--..",

	// Digits.
	'0': "-----",
	'1': ".----",
	'2': "..---",
	'3': "...--",
	'4': "....-",
	'5': ".....",
	'6': "-....",
	'7': "--...",
	'8': "---..",
	'9': "----.",

	// Punctuation.
	'.':  "......",
	',':  ".-.-.-",
	':':  "---...",
	';':  "-.-.-.",
	'(':  "-.--.-",
	')':  "-.--.-",
	'\'': ".----.",
	'"':  ".-..-.",
	'-':  "-....-",
	'\\': "-..-.",
	'_':  "..--.-",
	'?':  "..--..",
	'!':  "--..--",
	'+':  ".-.-.",
	'@':  ".--.-.",

	// Cyrillic. Most letters reuse the pattern of their Latin counterpart.
	'а': ".-",
	'б': "-...",
	'в': ".--",
	'г': "--.",
	'д': "-..",
	'е': ".",
	'ё': ".",
	'ж': "...-",
	'з': "--..",
	'и': "..",
	'й': ".---",
	'к': "-.-",
	'л': ".-..",
	'м': "--",
	'н': "-.",
	'о': "---",
	'п': ".--.",
	'р': ".-.",
	'с': "...",
	'т': "-",
	'у': "..-",
	'ф': "..-.",
	'х': "....",
	'ц': "-.-.",
	'ч': "---.",
	'ш': "----",
	'щ': "--.-",
	'ы': "-.--",
	'ь': "-..-",
	'ъ': "-..-",
	'э': "..-..",
	'ю': "..--",
	'я': ".-.-",
}

// Punctuation lists the supported punctuation characters in the order they
// are shown to users.
const Punctuation = `. , : ; ( ) ' " - \ _ ? ! + @`

// Entry is one row of the symbol table.
type Entry struct {
	Char    string `json:"char"`
	Pattern string `json:"pattern"`
}

// Lookup returns the Morse pattern for a single lowercase character.
func Lookup(r rune) (string, bool) {
	p, ok := table[r]
	return p, ok
}

// Alphabet returns a copy of the symbol table sorted by character.
func Alphabet() []Entry {
	entries := make([]Entry, 0, len(table))
	for r, p := range table {
		entries = append(entries, Entry{Char: string(r), Pattern: p})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Char < entries[j].Char
	})
	return entries
}

// Len returns the number of characters in the symbol table.
func Len() int {
	return len(table)
}
