package claims

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/edi/edi/internal/platform/x12"
)

// claimContext is the position of the extractor inside a claim block.
type claimContext int

const (
	// contextHeader runs from the start of the block up to the first LX.
	contextHeader claimContext = iota
	// contextLine runs from the first LX to the end of the block.
	contextLine
)

// ParseFile tokenizes and decodes one 837P interchange.
func ParseFile(fileName string, raw []byte) (*File, error) {
	doc, err := x12.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("claims: %s: %w", fileName, err)
	}
	sum := sha256.Sum256(raw)
	return Decode(fileName, hex.EncodeToString(sum[:]), doc), nil
}

// Decode builds the file record for an already tokenized document whose
// raw bytes hash to fileHash.
func Decode(fileName, fileHash string, doc *x12.Document) *File {
	claims, warnings := Extract(doc, fileName)
	return &File{
		FileName:   fileName,
		FileType:   FileType,
		FileHash:   fileHash,
		ClaimCount: len(claims),
		Envelope:   doc.Envelope(),
		Delimiters: doc.Delimiters,
		Summary:    Summarize(claims, warnings, doc.Delimiters),
		Claims:     claims,
	}
}

// Extract groups doc into HL*22 claim blocks and decodes each one. The
// file-level billing provider is added to every claim that has none of
// its own. Structural warnings are returned alongside the claims.
func Extract(doc *x12.Document, fileName string) ([]Claim, []string) {
	billing := billingProvider(doc.Segments)
	blocks := claimBlocks(doc.Segments)

	claims := make([]Claim, 0, len(blocks))
	var warnings []string
	for i, block := range blocks {
		ex := newBlockExtractor(fileName, doc.Delimiters.Component)
		for _, seg := range block {
			ex.consume(seg)
		}
		if !ex.sawCLM {
			warnings = append(warnings, fmt.Sprintf("claim block %d has no CLM segment", i+1))
		}
		warnings = append(warnings, ex.warnings...)

		claim := ex.claim
		if billing != nil && !hasRole(claim.Providers, RoleBilling) {
			claim.Providers = append([]Provider{*billing}, claim.Providers...)
		}
		claims = append(claims, claim)
	}
	return claims, warnings
}

// claimBlocks splits segments at each subscriber-level HL (HL03 = 22).
// Segments before the first such HL are not part of any block.
func claimBlocks(segments []x12.Segment) [][]x12.Segment {
	var blocks [][]x12.Segment
	var current []x12.Segment
	for _, seg := range segments {
		if seg.ID() == "HL" && len(seg) >= 4 && seg.Element(3) == "22" {
			if current != nil {
				blocks = append(blocks, current)
			}
			current = []x12.Segment{seg}
			continue
		}
		if current != nil {
			current = append(current, seg)
		}
	}
	if current != nil {
		blocks = append(blocks, current)
	}
	return blocks
}

// billingProvider returns the first NM1*85 in the file with its PRV*BI
// taxonomy, or nil. PRV*BI may precede or follow the NM1.
func billingProvider(segments []x12.Segment) *Provider {
	var p *Provider
	var taxonomy string
	for _, seg := range segments {
		switch seg.ID() {
		case "NM1":
			if p == nil && seg.Element(1) == "85" && len(seg) >= 10 {
				bp := providerFromNM1(seg)
				bp.TaxonomyCode = taxonomy
				p = &bp
			}
		case "PRV":
			if seg.Element(1) != "BI" || len(seg) < 4 {
				continue
			}
			if p == nil {
				taxonomy = seg.Element(3)
			} else if p.TaxonomyCode == "" {
				p.TaxonomyCode = seg.Element(3)
			}
		case "HL":
			if p != nil && seg.Element(3) == "22" {
				return p
			}
		}
	}
	return p
}

func providerFromNM1(seg x12.Segment) Provider {
	code := seg.Element(1)
	role, _ := ProviderRole(code)
	p := Provider{
		Role:                role,
		EntityIDCode:        code,
		EntityTypeQualifier: seg.Element(2),
		LastOrOrgName:       seg.Element(3),
		FirstName:           seg.Element(4),
		MiddleName:          seg.Element(5),
	}
	if len(seg) >= 10 {
		p.IDQualifier = seg.Element(8)
		p.NPI = seg.Element(9)
	}
	return p
}

func personFromNM1(seg x12.Segment) *Person {
	return &Person{
		EntityTypeQualifier: seg.Element(2),
		LastName:            seg.Element(3),
		FirstName:           seg.Element(4),
		MiddleName:          seg.Element(5),
		IDQualifier:         seg.Element(8),
		ID:                  seg.Element(9),
	}
}

func hasRole(providers []Provider, role string) bool {
	for _, p := range providers {
		if p.Role == role {
			return true
		}
	}
	return false
}

// blockExtractor accumulates one claim while walking its block.
type blockExtractor struct {
	comp       byte
	state      claimContext
	lineNumber int
	sawCLM     bool
	claim      Claim
	warnings   []string
}

func newBlockExtractor(fileName string, comp byte) *blockExtractor {
	return &blockExtractor{
		comp:  comp,
		state: contextHeader,
		claim: Claim{
			FileName:    fileName,
			Lines:       []ServiceLine{},
			Diagnoses:   []Diagnosis{},
			HeaderDates: []ClaimDate{},
			LineDates:   []ClaimDate{},
			Providers:   []Provider{},
			References:  []Reference{},
		},
	}
}

func (ex *blockExtractor) consume(seg x12.Segment) {
	switch seg.ID() {
	case "CLM":
		ex.onCLM(seg)
	case "SBR":
		ex.onSBR(seg)
	case "NM1":
		ex.onNM1(seg)
	case "PRV":
		ex.onPRV(seg)
	case "DTP":
		ex.onDTP(seg)
	case "HI":
		ex.onHI(seg)
	case "REF":
		ex.onREF(seg)
	case "LX":
		ex.onLX(seg)
	case "SV1":
		ex.onSV1(seg)
	}
}

func (ex *blockExtractor) onCLM(seg x12.Segment) {
	if len(seg) < 6 {
		return
	}
	ex.sawCLM = true
	c := &ex.claim
	c.ClaimID = seg.Element(1)
	c.TotalCharge = x12.ParseAmount(seg.Element(2))

	parts := x12.SplitComposite(seg.Element(5), ex.comp)
	if len(parts) >= 1 {
		c.FacilityTypeCode = parts[0]
		c.FacilityTypeDesc = describe(facilityTypes, parts[0])
	}
	if len(parts) >= 2 {
		c.FacilityCodeQualifier = parts[1]
	}
	if len(parts) >= 3 {
		c.FrequencyCode = parts[2]
		c.FrequencyDesc = describe(frequencyTypes, parts[2])
	}

	if len(seg) >= 8 {
		c.AssignmentCode = seg.Element(7)
		c.AssignmentDesc = describe(assignmentCodes, c.AssignmentCode)
	}
	if len(seg) >= 9 {
		c.BenefitsAssignment = seg.Element(8)
	}
	if len(seg) >= 10 {
		c.ReleaseOfInfoCode = seg.Element(9)
	}
}

func (ex *blockExtractor) onSBR(seg x12.Segment) {
	if len(seg) < 2 {
		return
	}
	c := &ex.claim
	c.PayerResponsibilityCode = seg.Element(1)
	c.PayerResponsibilityDesc = describe(payerResponsibility, c.PayerResponsibilityCode)
	if len(seg) >= 10 {
		c.FilingIndicatorCode = seg.Element(9)
		c.FilingIndicatorDesc = describe(filingIndicators, c.FilingIndicatorCode)
	}
}

func (ex *blockExtractor) onNM1(seg x12.Segment) {
	code := seg.Element(1)
	switch {
	case code == "PR" && len(seg) >= 4:
		ex.claim.PayerName = seg.Element(3)
		if len(seg) >= 10 {
			ex.claim.PayerID = seg.Element(9)
		}
	case ex.state == contextHeader && len(seg) >= 4:
		// Subscriber and patient are also kept as providers so PRV
		// first-fit sees them in source order.
		switch code {
		case "IL":
			ex.claim.Subscriber = personFromNM1(seg)
		case "QC":
			ex.claim.Patient = personFromNM1(seg)
		}
		ex.claim.Providers = append(ex.claim.Providers, providerFromNM1(seg))
	case code == "85" && len(seg) >= 10:
		ex.claim.Providers = append(ex.claim.Providers, providerFromNM1(seg))
	}
}

// onPRV gives the taxonomy to the first provider that has none.
func (ex *blockExtractor) onPRV(seg x12.Segment) {
	if ex.state != contextHeader || len(seg) < 4 {
		return
	}
	for i := range ex.claim.Providers {
		if ex.claim.Providers[i].TaxonomyCode == "" {
			ex.claim.Providers[i].TaxonomyCode = seg.Element(3)
			return
		}
	}
}

func (ex *blockExtractor) onDTP(seg x12.Segment) {
	if len(seg) < 4 {
		return
	}
	d := ClaimDate{
		Qualifier:       seg.Element(1),
		QualifierDesc:   describe(dateQualifiers, seg.Element(1)),
		FormatQualifier: seg.Element(2),
		Value:           seg.Element(3),
	}
	if t, ok := x12.ParseDate(d.Value, d.FormatQualifier); ok {
		d.Parsed = &t
	}

	if ex.state == contextHeader {
		ex.claim.HeaderDates = append(ex.claim.HeaderDates, d)
		return
	}
	d.LineNumber = ex.lineNumber
	ex.claim.LineDates = append(ex.claim.LineDates, d)
}

// onHI decodes each composite. The first diagnosis of the claim is the
// principal one regardless of its qualifier.
func (ex *blockExtractor) onHI(seg x12.Segment) {
	if ex.state != contextHeader {
		return
	}
	for _, element := range seg[1:] {
		parts := x12.SplitComposite(element, ex.comp)
		if len(parts) < 2 {
			continue
		}
		qualifier, code := parts[0], parts[1]
		dxType, known := DiagnosisType(qualifier)
		if len(ex.claim.Diagnoses) == 0 {
			dxType = DiagnosisPrincipal
		}
		ex.claim.Diagnoses = append(ex.claim.Diagnoses, Diagnosis{
			SequenceNumber: len(ex.claim.Diagnoses) + 1,
			Code:           code,
			Type:           dxType,
			CodeQualifier:  qualifier,
			QualifierKnown: known,
		})
	}
}

func (ex *blockExtractor) onREF(seg x12.Segment) {
	if len(seg) < 3 {
		return
	}
	qualifier, value := seg.Element(1), seg.Element(2)

	if ex.state == contextLine {
		if qualifier == "6R" && len(ex.claim.Lines) > 0 {
			ex.claim.Lines[len(ex.claim.Lines)-1].ControlNumber = value
		}
		return
	}

	ex.claim.References = append(ex.claim.References, Reference{
		Qualifier:     qualifier,
		QualifierDesc: describe(referenceQualifiers, qualifier),
		Value:         value,
	})
	switch qualifier {
	case "G1":
		ex.claim.PriorAuthNumber = value
		ex.claim.PriorAuthStatus = "approved"
	case "F8":
		if ex.claim.OriginalClaimID == "" {
			ex.claim.OriginalClaimID = value
		}
	}
}

func (ex *blockExtractor) onLX(seg x12.Segment) {
	ex.state = contextLine
	ex.lineNumber = coerceLineNumber(seg.Element(1))
}

// coerceLineNumber returns n for a non-negative integer and 1 otherwise.
func coerceLineNumber(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 1
	}
	return n
}

func (ex *blockExtractor) onSV1(seg x12.Segment) {
	if len(seg) < 5 {
		return
	}
	if ex.state == contextHeader {
		ex.warnings = append(ex.warnings, fmt.Sprintf("claim %q: SV1 before LX ignored", ex.claim.ClaimID))
		return
	}

	parts := x12.SplitComposite(seg.Element(1), ex.comp)
	line := ServiceLine{
		LineNumber:          ex.lineNumber,
		ProcedureQualifier:  x12.Component(parts, 0),
		ProcedureCode:       x12.Component(parts, 1),
		ChargeAmount:        x12.ParseAmount(seg.Element(2)),
		UnitMeasurementCode: seg.Element(3),
		UnitCount:           x12.ParseAmount(seg.Element(4)),
		PlaceOfServiceCode:  seg.Element(5),
	}
	for i := 2; i < len(parts) && i < 2+MaxModifiers; i++ {
		line.Modifiers = append(line.Modifiers, parts[i])
	}
	if pointers := seg.Element(7); pointers != "" {
		line.DiagnosisPointers = x12.SplitComposite(pointers, ex.comp)
	}
	ex.claim.Lines = append(ex.claim.Lines, line)
}
