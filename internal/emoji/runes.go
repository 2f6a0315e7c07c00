package emoji

import "unicode/utf8"

// Run returns the maximal emoji run at the start of s: a contiguous
// sequence of emoji code points, zero-width joiners and variation
// selectors. Empty when s does not start with an emoji rune.
func Run(s string) string {
	end := 0
	for _, r := range s {
		if !emojiRune(r) {
			break
		}
		end += utf8.RuneLen(r)
	}
	return s[:end]
}

func emojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, transport, supplemental
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows, stars
		return true
	case r == 0x200D: // zero-width joiner
		return true
	case r == 0xFE0E || r == 0xFE0F: // variation selectors
		return true
	}
	return false
}
