package claims

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edi/edi/internal/platform/x12"
)

// FileType is the file_type recorded for every decoded 837P file.
const FileType = "837P"

// File is the decoded form of one 837P interchange.
type File struct {
	FileName   string         `json:"file_name"`
	FileType   string         `json:"file_type"`
	FileHash   string         `json:"file_hash"`
	ClaimCount int            `json:"record_count"`
	Envelope   x12.Envelope   `json:"metadata"`
	Delimiters x12.Delimiters `json:"-"`
	Summary    Summary        `json:"parse_summary"`
	Claims     []Claim        `json:"claims"`
}

// Claim is one CLM loop together with everything attached to it.
type Claim struct {
	ID       uuid.UUID `db:"id" json:"id"`
	ClaimID  string    `db:"claim_id" json:"claim_id"`
	FileName string    `db:"file_name" json:"file_name"`

	TotalCharge decimal.NullDecimal `db:"total_charge_amount" json:"total_charge_amount"`

	FacilityTypeCode        string `db:"facility_type_code" json:"facility_type_code,omitempty"`
	FacilityTypeDesc        string `db:"facility_type_desc" json:"facility_type_desc,omitempty"`
	FacilityCodeQualifier   string `db:"facility_code_qualifier" json:"facility_code_qualifier,omitempty"`
	FrequencyCode           string `db:"claim_frequency_type_code" json:"claim_frequency_type_code,omitempty"`
	FrequencyDesc           string `db:"claim_frequency_type_desc" json:"claim_frequency_type_desc,omitempty"`
	AssignmentCode          string `db:"assignment_code" json:"assignment_code,omitempty"`
	AssignmentDesc          string `db:"assignment_desc" json:"assignment_desc,omitempty"`
	BenefitsAssignment      string `db:"benefits_assignment" json:"benefits_assignment,omitempty"`
	ReleaseOfInfoCode       string `db:"release_of_info_code" json:"release_of_info_code,omitempty"`
	FilingIndicatorCode     string `db:"claim_filing_indicator_code" json:"claim_filing_indicator_code,omitempty"`
	FilingIndicatorDesc     string `db:"claim_filing_indicator_desc" json:"claim_filing_indicator_desc,omitempty"`
	PayerResponsibilityCode string `db:"payer_responsibility_code" json:"payer_responsibility_code,omitempty"`
	PayerResponsibilityDesc string `db:"payer_responsibility_desc" json:"payer_responsibility_desc,omitempty"`

	PayerName string `db:"payer_name" json:"payer_name,omitempty"`
	PayerID   string `db:"payer_id" json:"payer_id,omitempty"`

	Subscriber *Person `json:"subscriber,omitempty"`
	Patient    *Person `json:"patient,omitempty"`

	PriorAuthNumber string `db:"prior_auth_number" json:"prior_auth_number,omitempty"`
	PriorAuthStatus string `db:"prior_auth_status" json:"prior_auth_status,omitempty"`
	OriginalClaimID string `db:"original_claim_id" json:"original_claim_id,omitempty"`

	Lines       []ServiceLine `json:"lines"`
	Diagnoses   []Diagnosis   `json:"diagnoses"`
	HeaderDates []ClaimDate   `json:"dates_header"`
	LineDates   []ClaimDate   `json:"dates_line"`
	Providers   []Provider    `json:"providers"`
	References  []Reference   `json:"references"`
}

// HasServiceLines reports whether any SV1 was decoded for the claim.
func (c *Claim) HasServiceLines() bool { return len(c.Lines) > 0 }

// Person is a subscriber or patient name from NM1*IL / NM1*QC.
type Person struct {
	EntityTypeQualifier string `json:"entity_type_qualifier,omitempty"`
	LastName            string `json:"last_name,omitempty"`
	FirstName           string `json:"first_name,omitempty"`
	MiddleName          string `json:"middle_name,omitempty"`
	IDQualifier         string `json:"id_code_qualifier,omitempty"`
	ID                  string `json:"id,omitempty"`
}

// ServiceLine is one SV1 in LX order.
type ServiceLine struct {
	LineNumber          int                 `db:"line_number" json:"line_number"`
	ProcedureCode       string              `db:"procedure_code" json:"procedure_code"`
	ProcedureQualifier  string              `db:"procedure_qualifier" json:"procedure_qualifier"`
	Modifiers           []string            `json:"modifiers,omitempty"`
	ChargeAmount        decimal.NullDecimal `db:"charge_amount" json:"charge_amount"`
	UnitMeasurementCode string              `db:"unit_measurement_code" json:"unit_measurement_code,omitempty"`
	UnitCount           decimal.NullDecimal `db:"unit_count" json:"unit_count"`
	PlaceOfServiceCode  string              `db:"place_of_service_code" json:"place_of_service_code,omitempty"`
	DiagnosisPointers   []string            `json:"diagnosis_pointers,omitempty"`
	ControlNumber       string              `db:"line_control_number" json:"line_control_number,omitempty"`
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

// Diagnosis is one HI composite.
type Diagnosis struct {
	SequenceNumber int    `db:"sequence_number" json:"sequence_number"`
	Code           string `db:"diagnosis_code" json:"diagnosis_code"`
	Type           string `db:"diagnosis_type" json:"diagnosis_type"`
	CodeQualifier  string `db:"code_qualifier" json:"code_qualifier"`
	QualifierKnown bool   `json:"qualifier_known"`
}

// ClaimDate is a DTP. LineNumber is zero for header dates.
type ClaimDate struct {
	LineNumber      int        `db:"line_number" json:"line_number,omitempty"`
	Qualifier       string     `db:"date_qualifier" json:"date_qualifier"`
	QualifierDesc   string     `db:"date_qualifier_desc" json:"date_qualifier_desc"`
	FormatQualifier string     `db:"date_format_qualifier" json:"date_format_qualifier"`
	Value           string     `db:"date_value" json:"date_value"`
	Parsed          *time.Time `db:"parsed_date" json:"parsed_date"`
}

// Provider is a claim-level NM1 tagged by role.
type Provider struct {
	Role                string `db:"provider_role" json:"provider_role"`
	EntityIDCode        string `db:"entity_identifier_code" json:"entity_identifier_code"`
	EntityTypeQualifier string `db:"entity_type_qualifier" json:"entity_type_qualifier,omitempty"`
	LastOrOrgName       string `db:"last_or_org_name" json:"last_or_org_name,omitempty"`
	FirstName           string `db:"first_name" json:"first_name,omitempty"`
	MiddleName          string `db:"middle_name" json:"middle_name,omitempty"`
	IDQualifier         string `db:"id_code_qualifier" json:"id_code_qualifier,omitempty"`
	NPI                 string `db:"npi" json:"npi,omitempty"`
	TaxonomyCode        string `db:"taxonomy_code" json:"taxonomy_code,omitempty"`
}

// Reference is a claim-level REF.
type Reference struct {
	Qualifier     string `db:"reference_qualifier" json:"reference_qualifier"`
	QualifierDesc string `db:"reference_qualifier_desc" json:"reference_qualifier_desc"`
	Value         string `db:"reference_value" json:"reference_value"`
}

// Summary reports parse-quality findings for one file. Code sets are
// sorted so that identical input yields an identical summary.
type Summary struct {
	Warnings                   []string `json:"warnings"`
	UnknownDateQualifiers      []string `json:"unknown_dtp_qualifiers"`
	UnknownRefQualifiers       []string `json:"unknown_ref_qualifiers"`
	UnknownDiagnosisQualifiers []string `json:"unknown_diagnosis_qualifiers"`
	UnknownProviderRoles       []string `json:"unknown_provider_roles"`
	UnknownFilingIndicators    []string `json:"unknown_filing_indicators"`
	InvalidDates               int      `json:"invalid_dates"`
	ClaimsWithoutLines         int      `json:"claims_without_lines"`
	SegmentDelimiter           string   `json:"segment_delimiter"`
	ElementDelimiter           string   `json:"element_delimiter"`
	ComponentDelimiter         string   `json:"component_delimiter"`
}
