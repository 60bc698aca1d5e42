package sms

import "strings"

// Message encodings. A single character outside the GSM 03.38 tables forces
// the whole message onto the two-byte alphabet, which more than halves the
// per-segment capacity.
const (
	EncodingGSM         = "gsm"
	EncodingGSMExtended = "gsm_extended"
	EncodingUnicode     = "unicode"
)

// Segment capacities per GSM 03.38 / UCS-2. Multi-segment messages lose
// header bytes to the concatenation UDH.
const (
	gsmSingleSegment     = 160
	gsmMultiSegment      = 153
	unicodeSingleSegment = 70
	unicodeMultiSegment  = 67
)

// DefaultSegmentPriceCents is what one outbound segment costs the account.
const DefaultSegmentPriceCents int64 = 25

// DefaultMaxChars caps a message at six GSM segments.
const DefaultMaxChars = 918

// Calculator prices a rendered message. Pricing is encoding-dependent: a
// GSM-encodable message is billed per 160/153-character segment, a message
// with any non-GSM character per 70/67-character segment.
type Calculator struct {
	SegmentPriceCents int64
	MaxChars          int
}

// NewCalculator returns a Calculator with default pricing.
func NewCalculator() Calculator {
	return Calculator{SegmentPriceCents: DefaultSegmentPriceCents, MaxChars: DefaultMaxChars}
}

// Analysis describes how a message will be encoded and what sending it costs.
type Analysis struct {
	Encoding  string
	Chars     int
	Segments  int
	CostCents int64
	Valid     bool
}

// Analyze classifies msg and computes its segment count and cost. An empty
// message is zero segments and zero cost.
func (c Calculator) Analyze(msg string) Analysis {
	encoding := EncodingGSM
	chars := 0
	for _, r := range msg {
		switch {
		case gsmBasic[r]:
			chars++
		case gsmExtended[r]:
			// Extension-table characters are sent as an escape pair.
			chars += 2
			if encoding == EncodingGSM {
				encoding = EncodingGSMExtended
			}
		default:
			encoding = EncodingUnicode
		}
	}
	if encoding == EncodingUnicode {
		// Escape-pair counting only applies to GSM; recount as UCS-2 runes.
		chars = len([]rune(msg))
	}

	single, multi := gsmSingleSegment, gsmMultiSegment
	if encoding == EncodingUnicode {
		single, multi = unicodeSingleSegment, unicodeMultiSegment
	}

	segments := 0
	switch {
	case chars == 0:
	case chars <= single:
		segments = 1
	default:
		segments = (chars + multi - 1) / multi
	}

	return Analysis{
		Encoding:  encoding,
		Chars:     chars,
		Segments:  segments,
		CostCents: int64(segments) * c.SegmentPriceCents,
		Valid:     chars <= c.MaxChars,
	}
}

// translitReplacer maps the usual word-processor smart punctuation onto
// GSM-safe equivalents so a template edit does not silently triple the cost.
var translitReplacer = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"‚", "'",
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"„", `"`,
	"–", "-", // en dash
	"—", "-", // em dash
	"…", "...", // ellipsis
	"™", "TM",
	"©", "(c)",
	"®", "(r)",
	" ", " ", // no-break space
	"​", "", // zero-width space
)

// Transliterate substitutes smart punctuation with basic-alphabet
// equivalents. This is a pre-flight cleanup for templates; it never changes
// the billed cost of a message that has already been sent.
func Transliterate(msg string) string {
	return translitReplacer.Replace(msg)
}
