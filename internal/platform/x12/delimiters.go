package x12

import (
	"strings"
	"unicode"
)

// isaLength is the fixed width of an ISA segment including its terminator.
const isaLength = 106

// Fixed offsets inside the ISA segment, relative to the "I" of "ISA".
const (
	isaElementOffset   = 3
	isaComponentOffset = 104
	isaSegmentOffset   = 105
)

// DefaultRepetition is used for every document; ISA11 is not read.
const DefaultRepetition = '^'

// Delimiters holds the four separator characters of an interchange.
type Delimiters struct {
	Segment    byte `json:"segment"`
	Element    byte `json:"element"`
	Component  byte `json:"component"`
	Repetition byte `json:"repetition"`
}

// DefaultDelimiters is the set used when no usable envelope is present.
var DefaultDelimiters = Delimiters{
	Segment:    '~',
	Element:    '*',
	Component:  ':',
	Repetition: DefaultRepetition,
}

// DetectDelimiters reads the element, component and segment separators
// from the ISA envelope. Any anomaly (no ISA, short document, blank or
// unprintable separator, separators colliding) yields DefaultDelimiters.
func DetectDelimiters(text string) Delimiters {
	pos := strings.Index(text, "ISA")
	if pos < 0 || len(text) < pos+isaLength {
		return DefaultDelimiters
	}

	d := Delimiters{
		Element:    text[pos+isaElementOffset],
		Component:  text[pos+isaComponentOffset],
		Segment:    text[pos+isaSegmentOffset],
		Repetition: DefaultRepetition,
	}
	if !d.valid() {
		return DefaultDelimiters
	}
	return d
}

func (d Delimiters) valid() bool {
	chars := []byte{d.Segment, d.Element, d.Component, d.Repetition}
	seen := make(map[byte]bool, len(chars))
	for _, c := range chars {
		if !usableDelimiter(c) || seen[c] {
			return false
		}
		seen[c] = true
	}
	return true
}

func usableDelimiter(c byte) bool {
	if c >= 0x80 {
		return false
	}
	r := rune(c)
	return unicode.IsPrint(r) && !unicode.IsSpace(r)
}
