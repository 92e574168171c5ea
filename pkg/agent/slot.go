package agent

import (
	"regexp"
	"strconv"
	"strings"
)

// SlotType is the declared value type of a slot.
type SlotType int

const (
	SlotText SlotType = iota
	SlotInteger
	SlotDecimal
	SlotEnum
	SlotDate
	SlotPhone
)

// Slot is one extracted piece of conversation state, keyed by
// CanonicalName within a Session.
type Slot struct {
	CanonicalName string
	Value         string
	Type          SlotType
	Confidence    float64
	SourceTurnID  int
}

// SlotStore holds the latest value of every slot seen in a session. An
// update only replaces the stored value when its confidence is >= the
// value already held, per invariant 4: slot confidence never decreases for
// the same source turn.
type SlotStore struct {
	byName map[string]Slot
}

func NewSlotStore() *SlotStore {
	return &SlotStore{byName: make(map[string]Slot)}
}

// Set applies an extracted slot, rejecting it if a higher-confidence value
// is already stored.
func (s *SlotStore) Set(slot Slot) (applied bool) {
	existing, ok := s.byName[slot.CanonicalName]
	if ok && slot.Confidence < existing.Confidence {
		return false
	}
	s.byName[slot.CanonicalName] = slot
	return true
}

func (s *SlotStore) Get(name string) (Slot, bool) {
	v, ok := s.byName[name]
	return v, ok
}

func (s *SlotStore) All() map[string]Slot {
	out := make(map[string]Slot, len(s.byName))
	for k, v := range s.byName {
		out[k] = v
	}
	return out
}

// unitKind distinguishes what a parsed quantity actually measures, so
// ExtractSlots can file it under a domain-specific slot name in addition
// to the generic "quantity" slot.
type unitKind int

const (
	unitUnspecified unitKind = iota
	unitWeight
	unitCurrencyScale
)

type unitInfo struct {
	multiplier float64
	kind       unitKind
}

// unitMultipliers maps the Indian numbering-system units the spec calls
// out by name, in both Latin transliteration and Devanagari script, to
// their multiplier on the preceding number and what they measure.
var unitMultipliers = map[string]unitInfo{
	"lakh":   {100000, unitCurrencyScale},
	"lakhs":  {100000, unitCurrencyScale},
	"लाख":    {100000, unitCurrencyScale},
	"crore":  {10000000, unitCurrencyScale},
	"crores": {10000000, unitCurrencyScale},
	"करोड़":   {10000000, unitCurrencyScale},
	"करोड":   {10000000, unitCurrencyScale},
	"gram":   {1, unitWeight},
	"grams":  {1, unitWeight},
	"gm":     {1, unitWeight},
	"ग्राम":   {1, unitWeight},
	"kilo":   {1000, unitWeight},
	"kilos":  {1000, unitWeight},
	"kg":     {1000, unitWeight},
	"किलो":    {1000, unitWeight},
}

// hindiWord pairs a Hindi number word (Latin-transliterated or
// Devanagari) with its value. hindiDigitWordList is a slice rather than a
// map so ParseQuantity can scan it in a fixed order: ranging over a Go map
// visits entries in randomized order, which would make the word picked
// out of an utterance containing more than one number word nondeterministic
// across runs.
type hindiWord struct {
	word  string
	value float64
}

var hindiDigitWordList = []hindiWord{
	{"ek", 1}, {"एक", 1},
	{"do", 2}, {"दो", 2},
	{"teen", 3}, {"तीन", 3},
	{"char", 4}, {"चार", 4},
	{"paanch", 5}, {"पांच", 5}, {"panch", 5},
	{"che", 6}, {"chhe", 6}, {"छह", 6},
	{"saat", 7}, {"सात", 7},
	{"aath", 8}, {"आठ", 8},
	{"nau", 9}, {"नौ", 9},
	{"das", 10}, {"दस", 10},
}

// devanagariDigits maps Devanagari numerals to their ASCII digit, so
// quantities and rates spoken/transcribed in Devanagari numerals parse the
// same way as their Latin-numeral equivalents.
var devanagariDigits = map[rune]rune{
	'०': '0', '१': '1', '२': '2', '३': '3', '४': '4',
	'५': '5', '६': '6', '७': '7', '८': '8', '९': '9',
}

// normalizeDigits rewrites any Devanagari numerals in text to ASCII
// digits, leaving everything else untouched.
func normalizeDigits(text string) string {
	hasDevanagariDigit := false
	for _, r := range text {
		if _, ok := devanagariDigits[r]; ok {
			hasDevanagariDigit = true
			break
		}
	}
	if !hasDevanagariDigit {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if ascii, ok := devanagariDigits[r]; ok {
			b.WriteRune(ascii)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// quantityBoundary is the trailing-context class used in place of \b:
// Go's regexp \b is defined relative to ASCII \w only, so it does not
// recognize a boundary between a space and a Devanagari character (both
// sides are "non-word" under the ASCII definition). Matching on an
// explicit set of separators/terminators instead works for both scripts.
const quantityBoundary = `(?:\s|$|[।,.!?;:])`

// quantityPattern matches "<number> <unit>" with an optional decimal
// point, e.g. "2.5 lakh", "500 gram", "10 kg", "5 लाख".
var quantityPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(lakh|lakhs|crore|crores|gram|grams|gm|kilo|kilos|kg|लाख|करोड़|करोड|ग्राम|किलो)` + quantityBoundary)

// percentPattern matches a bare interest-rate percentage, e.g. "22%",
// "12.5 percent", "22 pratishat", "22 प्रतिशत".
var percentPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:%|percent|pratishat|प्रतिशत)`)

// parseQuantityUnit is ParseQuantity's internal form: it also reports what
// the matched quantity measures, so ExtractSlots can route it to a
// domain-specific slot alongside the generic one. text is expected to
// already have Devanagari digits normalized to ASCII.
func parseQuantityUnit(text string) (value float64, kind unitKind, ok bool) {
	if m := quantityPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, unitUnspecified, false
		}
		info, known := unitMultipliers[strings.ToLower(m[2])]
		if !known {
			info, known = unitMultipliers[m[2]]
		}
		if !known {
			return 0, unitUnspecified, false
		}
		return n * info.multiplier, info.kind, true
	}

	lower := strings.ToLower(text)
	bestIdx := -1
	var bestVal float64
	for _, hw := range hindiDigitWordList {
		idx := strings.Index(lower, strings.ToLower(hw.word))
		if idx < 0 {
			continue
		}
		if bestIdx == -1 || idx < bestIdx {
			bestIdx = idx
			bestVal = hw.value
		}
	}
	if bestIdx >= 0 {
		return bestVal, unitUnspecified, true
	}

	return 0, unitUnspecified, false
}

// ParseQuantity extracts the first unit-bearing numeric quantity from text
// and returns its value in base units (grams for weight, rupees for
// currency-scale words), or ok=false if none was found. Where more than
// one Hindi number word appears in text, it deterministically returns the
// one starting earliest in the string.
func ParseQuantity(text string) (value float64, ok bool) {
	v, _, ok := parseQuantityUnit(normalizeDigits(text))
	return v, ok
}

// phonePattern matches a 10-digit Indian mobile number, optionally with a
// +91 prefix or separators.
var phonePattern = regexp.MustCompile(`(?:\+?91[\s-]?)?([6-9]\d{9})\b`)

// datePattern matches common DD-MM-YYYY / DD/MM/YYYY date forms as they
// appear in a transcribed utterance.
var datePattern = regexp.MustCompile(`\b(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})\b`)

// SlotExtractor runs the declared regex patterns against an utterance.
// These patterns are compiled once, at package initialization, and are actually
// invoked from ExtractSlots — a prior version of this extraction declared
// the patterns without ever calling them.
type SlotExtractor struct {
	turnCounter int
}

func NewSlotExtractor() *SlotExtractor {
	return &SlotExtractor{}
}

// ExtractSlots scans text for phone numbers, dates, interest rates, and
// unit-bearing quantities and returns the slots found, tagged with
// sourceTurnID. A currency-scale quantity ("5 lakh") additionally yields
// an outstanding_amount slot, and a weight ("50 gram") additionally yields
// a collateral_weight_g slot, so downstream tools can read the value
// under the name they expect without the caller knowing which unit kind
// was spoken.
func (e *SlotExtractor) ExtractSlots(text string, sourceTurnID int) []Slot {
	var slots []Slot
	normalized := normalizeDigits(text)

	if m := phonePattern.FindStringSubmatch(text); m != nil {
		slots = append(slots, Slot{
			CanonicalName: "phone",
			Value:         m[1],
			Type:          SlotPhone,
			Confidence:    0.95,
			SourceTurnID:  sourceTurnID,
		})
	}

	if m := datePattern.FindStringSubmatch(text); m != nil {
		slots = append(slots, Slot{
			CanonicalName: "appointment_date",
			Value:         m[1],
			Type:          SlotDate,
			Confidence:    0.8,
			SourceTurnID:  sourceTurnID,
		})
	}

	if m := percentPattern.FindStringSubmatch(normalized); m != nil {
		if rate, err := strconv.ParseFloat(m[1], 64); err == nil {
			slots = append(slots, Slot{
				CanonicalName: "current_rate",
				Value:         strconv.FormatFloat(rate, 'f', -1, 64),
				Type:          SlotDecimal,
				Confidence:    0.85,
				SourceTurnID:  sourceTurnID,
			})
		}
	}

	if qty, kind, ok := parseQuantityUnit(normalized); ok {
		slots = append(slots, Slot{
			CanonicalName: "quantity",
			Value:         strconv.FormatFloat(qty, 'f', -1, 64),
			Type:          SlotDecimal,
			Confidence:    0.85,
			SourceTurnID:  sourceTurnID,
		})
		switch kind {
		case unitCurrencyScale:
			slots = append(slots, Slot{
				CanonicalName: "outstanding_amount",
				Value:         strconv.FormatFloat(qty, 'f', -1, 64),
				Type:          SlotDecimal,
				Confidence:    0.85,
				SourceTurnID:  sourceTurnID,
			})
		case unitWeight:
			slots = append(slots, Slot{
				CanonicalName: "collateral_weight_g",
				Value:         strconv.FormatFloat(qty, 'f', -1, 64),
				Type:          SlotDecimal,
				Confidence:    0.85,
				SourceTurnID:  sourceTurnID,
			})
		}
	}

	return slots
}
