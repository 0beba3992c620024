package x12

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyDocument is returned when the input holds no segments at all.
var ErrEmptyDocument = errors.New("x12: document is empty")

// Segment is one X12 segment. Index 0 is the segment identifier.
type Segment []string

// ID returns the segment identifier (e.g. "CLM", "CAS").
func (s Segment) ID() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Element returns the element at position i, or "" when absent.
func (s Segment) Element(i int) string {
	if i < 0 || i >= len(s) {
		return ""
	}
	return s[i]
}

// Document is a tokenized interchange.
type Document struct {
	Delimiters Delimiters
	Segments   []Segment
}

// Envelope holds interchange, group and transaction set identity.
type Envelope struct {
	SenderID                 string    `json:"sender_id,omitempty"`
	ReceiverID               string    `json:"receiver_id,omitempty"`
	InterchangeControlNumber string    `json:"interchange_control_number,omitempty"`
	InterchangeDate          time.Time `json:"interchange_date,omitempty"`
	FunctionalGroupID        string    `json:"functional_group_id,omitempty"`
	TransactionSetID         string    `json:"transaction_set_id,omitempty"`
	TransactionSetControlNum string    `json:"transaction_set_control_number,omitempty"`
	ImplementationConvention string    `json:"implementation_convention,omitempty"`
}

// Parse tokenizes raw X12 bytes. Invalid UTF-8 is replaced rather than
// rejected; only input without a single segment is an error.
func Parse(raw []byte) (*Document, error) {
	text := strings.ToValidUTF8(string(raw), "�")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	delims := DetectDelimiters(text)
	doc := &Document{
		Delimiters: delims,
		Segments:   Tokenize(text, delims),
	}
	if len(doc.Segments) == 0 {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

// Tokenize splits text into segments and elements using d.
func Tokenize(text string, d Delimiters) []Segment {
	parts := strings.Split(text, string(d.Segment))
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		part = strings.ReplaceAll(part, "\r", "")
		part = strings.ReplaceAll(part, "\n", "")
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		segments = append(segments, Segment(strings.Split(part, string(d.Element))))
	}
	return segments
}

// TransactionSet returns ST01 of the first ST segment, or "".
func (doc *Document) TransactionSet() string {
	for _, seg := range doc.Segments {
		if seg.ID() == "ST" {
			return strings.TrimSpace(seg.Element(1))
		}
	}
	return ""
}

// Envelope extracts ISA/GS/ST identity. Missing segments leave fields blank.
func (doc *Document) Envelope() Envelope {
	var env Envelope
	var sawISA, sawGS, sawST bool
	for _, seg := range doc.Segments {
		switch seg.ID() {
		case "ISA":
			if sawISA {
				continue
			}
			sawISA = true
			env.SenderID = strings.TrimSpace(seg.Element(6))
			env.ReceiverID = strings.TrimSpace(seg.Element(8))
			env.InterchangeControlNumber = strings.TrimSpace(seg.Element(13))
			if t, err := time.Parse("060102", strings.TrimSpace(seg.Element(9))); err == nil {
				env.InterchangeDate = t
			}
		case "GS":
			if sawGS {
				continue
			}
			sawGS = true
			env.FunctionalGroupID = strings.TrimSpace(seg.Element(1))
		case "ST":
			if sawST {
				continue
			}
			sawST = true
			env.TransactionSetID = strings.TrimSpace(seg.Element(1))
			env.TransactionSetControlNum = strings.TrimSpace(seg.Element(2))
			env.ImplementationConvention = strings.TrimSpace(seg.Element(3))
		}
	}
	return env
}
