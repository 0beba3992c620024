package remittance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edi/edi/internal/platform/x12"
)

// paymentState is where the extractor is relative to CLP and SVC loops.
type paymentState int

const (
	// stateFile is before the first CLP. Segments update file-level fields.
	stateFile paymentState = iota
	// statePayment has a payment open and no service line.
	statePayment
	// stateLine has a payment and one of its service lines open.
	stateLine
)

// Extraction is everything Extract collects from one document.
type Extraction struct {
	Payments              []Payment
	ProductionDate        *time.Time
	Warnings              []string
	InvalidDates          int
	UnknownDateQualifiers map[string]struct{}
}

// ParseFile tokenizes and decodes one 835 interchange.
func ParseFile(fileName string, raw []byte) (*File, error) {
	doc, err := x12.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("remittance: %s: %w", fileName, err)
	}
	sum := sha256.Sum256(raw)
	return Decode(fileName, hex.EncodeToString(sum[:]), doc), nil
}

// Decode builds the file record for an already tokenized document whose
// raw bytes hash to fileHash.
func Decode(fileName, fileHash string, doc *x12.Document) *File {
	ext := Extract(doc, fileName)
	return &File{
		FileName:       fileName,
		FileType:       FileType,
		FileHash:       fileHash,
		PaymentCount:   len(ext.Payments),
		Envelope:       doc.Envelope(),
		ProductionDate: ext.ProductionDate,
		Delimiters:     doc.Delimiters,
		Summary:        Summarize(ext, doc.Delimiters),
		Payments:       ext.Payments,
	}
}

// payerInfo is collected from BPR, TRN and N1 and copied into each
// payment when its CLP opens.
type payerInfo struct {
	payerName     string
	payerID       string
	payeeName     string
	payeeNPI      string
	paymentMethod string
	checkNumber   string
	checkDate     *time.Time
}

type extractor struct {
	comp     byte
	fileName string
	state    paymentState
	info     payerInfo
	current  *Payment
	// paidDateFromDTM is set once a DTM has supplied the payment date.
	paidDateFromDTM bool
	out             Extraction
}

// Extract walks doc and returns its payments in CLP order. The payment
// open at the end of the document is included.
func Extract(doc *x12.Document, fileName string) *Extraction {
	ex := &extractor{
		comp:     doc.Delimiters.Component,
		fileName: fileName,
		state:    stateFile,
		out: Extraction{
			Payments:              []Payment{},
			UnknownDateQualifiers: map[string]struct{}{},
		},
	}
	for _, seg := range doc.Segments {
		ex.consume(seg)
	}
	ex.closePayment()
	return &ex.out
}

func (ex *extractor) consume(seg x12.Segment) {
	switch seg.ID() {
	case "BPR":
		ex.onBPR(seg)
	case "TRN":
		ex.onTRN(seg)
	case "N1":
		ex.onN1(seg)
	case "DTM":
		ex.onDTM(seg)
	case "CLP":
		ex.onCLP(seg)
	case "NM1":
		ex.onNM1(seg)
	case "SVC":
		ex.onSVC(seg)
	case "CAS":
		ex.onCAS(seg)
	case "REF":
		ex.onREF(seg)
	}
}

func (ex *extractor) warn(format string, args ...interface{}) {
	ex.out.Warnings = append(ex.out.Warnings, fmt.Sprintf(format, args...))
}

// date parses a CCYYMMDD value, counting non-blank failures.
func (ex *extractor) date(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, ok := x12.ParseDate(value, x12.FormatD8)
	if !ok {
		ex.out.InvalidDates++
		return nil
	}
	return &t
}

func (ex *extractor) onBPR(seg x12.Segment) {
	if len(seg) >= 5 {
		ex.info.paymentMethod = seg.Element(4)
	}
	if len(seg) >= 17 {
		ex.info.checkDate = ex.date(seg.Element(16))
	}
}

func (ex *extractor) onTRN(seg x12.Segment) {
	if len(seg) >= 3 {
		ex.info.checkNumber = seg.Element(2)
	}
}

func (ex *extractor) onN1(seg x12.Segment) {
	if len(seg) < 3 {
		return
	}
	switch seg.Element(1) {
	case "PR":
		ex.info.payerName = seg.Element(2)
		if len(seg) >= 5 {
			ex.info.payerID = seg.Element(4)
		}
	case "PE":
		ex.info.payeeName = seg.Element(2)
		if len(seg) >= 5 {
			ex.info.payeeNPI = seg.Element(4)
		}
	}
}

func (ex *extractor) onDTM(seg x12.Segment) {
	if len(seg) < 3 {
		return
	}
	qualifier := seg.Element(1)
	if _, known := dateQualifiers[qualifier]; !known && qualifier != "" {
		ex.out.UnknownDateQualifiers[qualifier] = struct{}{}
	}
	d := ex.date(seg.Element(2))

	if ex.state == stateFile {
		if qualifier == "405" && d != nil {
			ex.out.ProductionDate = d
		}
		return
	}

	p := ex.current
	switch qualifier {
	case "573", "050":
		if d != nil && !ex.paidDateFromDTM {
			p.PaymentDate = d
			ex.paidDateFromDTM = true
		}
	case "232":
		if d != nil {
			p.StatementStart = d
		}
	case "233":
		if d != nil {
			p.StatementEnd = d
		}
	case "472":
		if ex.state == stateLine && d != nil {
			p.ServiceLines[len(p.ServiceLines)-1].ServiceDate = d
		}
	}
}

func (ex *extractor) onCLP(seg x12.Segment) {
	if len(seg) < 5 {
		ex.warn("CLP segment with %d elements ignored", len(seg)-1)
		return
	}
	ex.closePayment()

	status := seg.Element(2)
	p := &Payment{
		FileName:                ex.fileName,
		PatientControlNumber:    seg.Element(1),
		StatusCode:              status,
		StatusDesc:              describe(claimStatuses, status),
		TotalCharge:             x12.ParseAmount(seg.Element(3)),
		PaidAmount:              x12.ParseAmount(seg.Element(4)),
		PatientResponsibility:   x12.ParseAmount(seg.Element(5)),
		FilingIndicatorCode:     seg.Element(6),
		FilingIndicatorDesc:     describe(filingIndicators, seg.Element(6)),
		PayerClaimControlNumber: seg.Element(7),
		FacilityTypeCode:        seg.Element(8),
		FrequencyCode:           seg.Element(9),
		PayerName:               ex.info.payerName,
		PayerID:                 ex.info.payerID,
		PayeeName:               ex.info.payeeName,
		PayeeNPI:                ex.info.payeeNPI,
		PaymentMethod:           ex.info.paymentMethod,
		CheckNumber:             ex.info.checkNumber,
		CheckDate:               ex.info.checkDate,
		PaymentDate:             ex.info.checkDate,
		ServiceLines:            []ServiceLine{},
		Adjustments:             []Adjustment{},
	}
	ex.current = p
	ex.paidDateFromDTM = false
	ex.state = statePayment
}

// closePayment appends the open payment, if any, to the output.
func (ex *extractor) closePayment() {
	if ex.current == nil {
		return
	}
	ex.out.Payments = append(ex.out.Payments, *ex.current)
	ex.current = nil
	ex.state = stateFile
}

func (ex *extractor) onNM1(seg x12.Segment) {
	if ex.current == nil || seg.Element(1) != "QC" {
		return
	}
	ex.current.PatientLastName = seg.Element(3)
	ex.current.PatientFirstName = seg.Element(4)
}

func (ex *extractor) onSVC(seg x12.Segment) {
	if len(seg) < 4 {
		return
	}
	if ex.current == nil {
		ex.warn("SVC outside of a claim payment ignored")
		return
	}

	parts := x12.SplitComposite(seg.Element(1), ex.comp)
	line := ServiceLine{
		ChargeAmount: x12.ParseAmount(seg.Element(2)),
		PaidAmount:   x12.ParseAmount(seg.Element(3)),
		RevenueCode:  seg.Element(4),
		Units:        x12.ParseAmount(seg.Element(5)),
		Adjustments:  []Adjustment{},
	}
	if len(parts) >= 2 {
		line.ProcedureQualifier = parts[0]
		line.ProcedureCode = parts[1]
		for i := 2; i < len(parts) && i < 2+MaxModifiers; i++ {
			line.Modifiers = append(line.Modifiers, parts[i])
		}
	} else {
		line.ProcedureCode = x12.Component(parts, 0)
	}

	ex.current.ServiceLines = append(ex.current.ServiceLines, line)
	ex.state = stateLine
}

// onCAS routes adjustments to the open service line, or to the payment
// when no line is open.
func (ex *extractor) onCAS(seg x12.Segment) {
	if len(seg) < 4 {
		return
	}
	if ex.current == nil {
		ex.warn("CAS outside of a claim payment ignored")
		return
	}

	if ex.state == stateLine {
		line := &ex.current.ServiceLines[len(ex.current.ServiceLines)-1]
		line.Adjustments = append(line.Adjustments, ParseAdjustments(seg, LevelLine)...)
		return
	}
	ex.current.Adjustments = append(ex.current.Adjustments, ParseAdjustments(seg, LevelClaim)...)
}

func (ex *extractor) onREF(seg x12.Segment) {
	if ex.state != stateLine || seg.Element(1) != "6R" {
		return
	}
	ex.current.ServiceLines[len(ex.current.ServiceLines)-1].ControlNumber = seg.Element(2)
}

// ParseAdjustments decodes a CAS segment into reason/amount/quantity
// entries. From element 2 each entry takes a reason and an amount; the
// next element is its quantity unless it is a recognized group code, in
// which case that code starts a new group. A blank reason ends the walk.
func ParseAdjustments(seg x12.Segment, level string) []Adjustment {
	group := seg.Element(1)
	var out []Adjustment
	for i := 2; i < len(seg); {
		reason := strings.TrimSpace(seg[i])
		if reason == "" {
			break
		}
		if i != 2 && IsAdjustmentGroup(reason) {
			group = reason
			i++
			continue
		}

		adj := newAdjustment(level, group, reason, seg.Element(i+1))
		if i+2 < len(seg) && !IsAdjustmentGroup(strings.TrimSpace(seg[i+2])) {
			adj.Quantity = parseQuantity(seg[i+2])
			i += 3
		} else {
			i += 2
		}
		out = append(out, adj)
	}
	return out
}

func newAdjustment(level, group, reason, amount string) Adjustment {
	adj := Adjustment{
		Level:      level,
		GroupCode:  group,
		ReasonCode: reason,
		Amount:     x12.ParseAmount(amount),
	}
	adj.GroupDesc, adj.GroupKnown = AdjustmentGroupDescription(group)
	adj.ReasonDesc, adj.ReasonKnown = ReasonCodeDescription(reason)
	return adj
}

// parseQuantity accepts integers and integral decimals such as "2.0".
func parseQuantity(value string) *int {
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		return &n
	}
	d, err := decimal.NewFromString(value)
	if err != nil || !d.Equal(d.Truncate(0)) {
		return nil
	}
	n := int(d.IntPart())
	return &n
}
