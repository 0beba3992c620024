package remittance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edi/edi/internal/domain/matching"
	"github.com/edi/edi/internal/platform/x12"
)

// FileType is the file_type recorded for every decoded 835 file.
const FileType = "835"

// Adjustment levels.
const (
	LevelClaim = "claim"
	LevelLine  = "line"
)

// File is the decoded form of one 835 interchange.
type File struct {
	FileName       string         `json:"file_name"`
	FileType       string         `json:"file_type"`
	FileHash       string         `json:"file_hash"`
	PaymentCount   int            `json:"record_count"`
	Envelope       x12.Envelope   `json:"metadata"`
	ProductionDate *time.Time     `json:"production_date,omitempty"`
	Delimiters     x12.Delimiters `json:"-"`
	Summary        Summary        `json:"parse_summary"`
	Payments       []Payment      `json:"payments"`
}

// Payment is one CLP loop with its service lines and adjustments.
type Payment struct {
	ID       uuid.UUID `json:"id"`
	FileName string    `json:"file_name"`

	PatientControlNumber    string `json:"patient_control_number"`
	PayerClaimControlNumber string `json:"payer_claim_control_number,omitempty"`
	StatusCode              string `json:"claim_status_code"`
	StatusDesc              string `json:"claim_status_desc"`

	TotalCharge           decimal.NullDecimal `json:"total_charge_amount"`
	PaidAmount            decimal.NullDecimal `json:"paid_amount"`
	PatientResponsibility decimal.NullDecimal `json:"patient_responsibility_amount"`

	FilingIndicatorCode string `json:"claim_filing_indicator_code,omitempty"`
	FilingIndicatorDesc string `json:"claim_filing_indicator_desc,omitempty"`
	FacilityTypeCode    string `json:"facility_type_code,omitempty"`
	FrequencyCode       string `json:"claim_frequency_code,omitempty"`

	PatientLastName  string `json:"patient_last_name,omitempty"`
	PatientFirstName string `json:"patient_first_name,omitempty"`

	PayerName     string     `json:"payer_name,omitempty"`
	PayerID       string     `json:"payer_id,omitempty"`
	PayeeName     string     `json:"payee_name,omitempty"`
	PayeeNPI      string     `json:"payee_npi,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	CheckNumber   string     `json:"check_number,omitempty"`
	CheckDate     *time.Time `json:"check_date"`
	PaymentDate   *time.Time `json:"payment_date"`

	StatementStart *time.Time `json:"statement_start"`
	StatementEnd   *time.Time `json:"statement_end"`

	ServiceLines []ServiceLine `json:"service_lines"`
	Adjustments  []Adjustment  `json:"adjustments"`

	// Match is set once the payment has been run through a Matcher.
	Match *matching.Result `json:"match,omitempty"`
}

// NaturalKey identifies a payment across reloads of the same file.
func (p *Payment) NaturalKey() string {
	date := ""
	if p.PaymentDate != nil {
		date = p.PaymentDate.Format("2006-01-02")
	}
	return p.FileName + "|" + p.PatientControlNumber + "|" + p.CheckNumber + "|" + date
}

// AdjustmentTotal sums the amounts of claim and line adjustments.
func (p *Payment) AdjustmentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.Adjustments {
		if a.Amount.Valid {
			total = total.Add(a.Amount.Decimal)
		}
	}
	for _, l := range p.ServiceLines {
		for _, a := range l.Adjustments {
			if a.Amount.Valid {
				total = total.Add(a.Amount.Decimal)
			}
		}
	}
	return total
}

// ServiceLine is one SVC within a payment.
type ServiceLine struct {
	ProcedureCode      string              `json:"procedure_code"`
	ProcedureQualifier string              `json:"procedure_qualifier,omitempty"`
	Modifiers          []string            `json:"modifiers,omitempty"`
	ChargeAmount       decimal.NullDecimal `json:"charge_amount"`
	PaidAmount         decimal.NullDecimal `json:"paid_amount"`
	RevenueCode        string              `json:"revenue_code,omitempty"`
	Units              decimal.NullDecimal `json:"units"`
	ServiceDate        *time.Time          `json:"service_date"`
	ControlNumber      string              `json:"line_control_number,omitempty"`
	Adjustments        []Adjustment        `json:"adjustments"`
}

// MaxModifiers is the number of procedure modifiers kept per line.
const MaxModifiers = 4

// Modifier returns modifier n (1-based), or "".
func (l *ServiceLine) Modifier(n int) string {
	if n < 1 || n > len(l.Modifiers) {
		return ""
	}
	return l.Modifiers[n-1]
}

// Adjustment is one reason/amount/quantity entry of a CAS segment.
// Unknown codes keep a blank description and Known=false.
type Adjustment struct {
	Level       string              `json:"adjustment_level"`
	GroupCode   string              `json:"group_code"`
	GroupDesc   string              `json:"group_desc"`
	GroupKnown  bool                `json:"group_known"`
	ReasonCode  string              `json:"reason_code"`
	ReasonDesc  string              `json:"reason_desc"`
	ReasonKnown bool                `json:"reason_known"`
	Amount      decimal.NullDecimal `json:"amount"`
	Quantity    *int                `json:"quantity"`
}

// Summary is the parse-quality report for one 835 file.
type Summary struct {
	Warnings                []string `json:"warnings"`
	UnknownAdjustmentGroups []string `json:"unknown_adjustment_groups"`
	UnknownReasonCodes      []string `json:"unknown_carc_codes"`
	UnknownStatusCodes      []string `json:"unknown_clp_status_codes"`
	UnknownDateQualifiers   []string `json:"unknown_dtp_qualifiers"`
	InvalidDates            int      `json:"invalid_dates"`
	PaymentsWithoutLines    int      `json:"payments_without_lines"`
	SegmentDelimiter        string   `json:"segment_delimiter"`
	ElementDelimiter        string   `json:"element_delimiter"`
	ComponentDelimiter      string   `json:"component_delimiter"`
}
