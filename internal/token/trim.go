package token

// Trim marks remove whitespace from the text regions adjacent to a tag. The
// renderer slices text with these helpers and the projection layer reuses
// them, so the two stay byte-for-byte consistent.

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// TrimmedSuffixLen reports how many trailing whitespace bytes a trim-marked
// opener on the next tag removes from text.
func TrimmedSuffixLen(text string) int {
	n := 0
	for i := len(text) - 1; i >= 0 && isSpaceByte(text[i]); i-- {
		n++
	}
	return n
}

// TrimmedPrefixLen reports how many leading whitespace bytes a trim-marked
// closer on the previous tag removes from text.
func TrimmedPrefixLen(text string) int {
	n := 0
	for n < len(text) && isSpaceByte(text[n]) {
		n++
	}
	return n
}
