package llm

import "github.com/rivo/uniseg"

// bytesPerTokenASCII is the rough heuristic that works for byte-oriented
// scripts; it is not applied to Devanagari or other multi-byte scripts,
// where each grapheme cluster spans several bytes and a byte-based count
// overstates the token total.
const bytesPerTokenASCII = 4

// graphemesPerTokenEstimate approximates subword-token density from
// grapheme cluster count for scripts where byte length is misleading
// (Devanagari conjuncts, Tamil/Telugu/Kannada/Malayalam vowel signs).
const graphemesPerTokenEstimate = 1.6

// EstimateTokens returns an approximate token count for s. ASCII-heavy text
// uses the byte heuristic; text containing multi-byte grapheme clusters
// (Indic scripts) is counted by grapheme cluster instead of by byte, since
// a single Devanagari conjunct can span several bytes and runes but reads
// as one token-relevant unit.
func EstimateTokens(s string) int {
	if isASCII(s) {
		n := len(s) / bytesPerTokenASCII
		if n == 0 && len(s) > 0 {
			n = 1
		}
		return n
	}

	count := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		count++
	}
	n := int(float64(count) / graphemesPerTokenEstimate)
	if n == 0 && count > 0 {
		n = 1
	}
	return n
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// EstimateMessagesTokens sums EstimateTokens across every message's
// content, the unit the context-window budget in the prompt assembler
// operates on.
func EstimateMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	return total
}
