package claims

// Code tables for 837P. Lookups never fail: an unknown code yields a blank
// description and known=false so callers can report it.

var facilityTypes = map[string]string{
	"11": "Office",
	"12": "Home",
	"13": "Critical Access Hospital",
	"14": "Skilled Nursing Facility",
	"18": "Psychiatric Hospital",
	"21": "Inpatient Hospital",
	"22": "Outpatient Hospital",
	"23": "Emergency Room",
	"24": "Ambulatory Surgical Center",
	"31": "Skilled Nursing Facility",
	"32": "Nursing Facility",
	"41": "Ambulance - Land",
	"42": "Ambulance - Air or Water",
	"51": "Psychiatric Inpatient",
	"61": "Inpatient Rehab",
	"71": "Public Health Clinic",
	"85": "Critical Access Hospital",
}

var frequencyTypes = map[string]string{
	"1": "Original Claim",
	"5": "Late Charge Claim",
	"6": "Adjusted Claim",
	"7": "Corrected Claim",
	"8": "Void Claim",
}

var assignmentCodes = map[string]string{
	"A": "Assigned",
	"B": "Assignment Accepted on Lab Only",
	"C": "Not Assigned",
}

var filingIndicators = map[string]string{
	"11": "Other Non-Federal",
	"12": "PPO",
	"13": "POS",
	"14": "EPO",
	"15": "Indemnity",
	"16": "HMO Medicare Risk",
	"17": "DMO",
	"AM": "Auto Medical",
	"BL": "BCBS",
	"CH": "CHAMPUS/TRICARE",
	"CI": "Commercial Insurance",
	"FI": "Federal Employees",
	"HM": "HMO",
	"LI": "Liability Insurance",
	"MA": "Medicare Part A",
	"MB": "Medicare Part B",
	"MC": "Medicaid",
	"OF": "Other Federal",
	"TV": "Title V",
	"VA": "Veterans Affairs",
	"WC": "Workers Compensation",
	"ZZ": "Mutually Defined",
}

var payerResponsibility = map[string]string{
	"P": "Primary",
	"S": "Secondary",
	"T": "Tertiary",
}

var dateQualifiers = map[string]string{
	"096": "Discharge Date",
	"232": "Statement Period Start",
	"233": "Statement Period End",
	"431": "Onset of Symptoms",
	"434": "Statement Dates",
	"435": "Admission Date",
	"439": "Accident Date",
	"454": "Initial Treatment Date",
	"472": "Service Date",
	"473": "Prescription Date",
	"573": "Claim Paid Date",
}

// Diagnosis types keyed by HI composite qualifier.
const (
	DiagnosisPrincipal      = "principal"
	DiagnosisOther          = "other"
	DiagnosisReasonForVisit = "reason_for_visit"
	DiagnosisAdmitting      = "admitting"
	DiagnosisExternalCause  = "external_cause"
	DiagnosisDRG            = "drg"
)

var diagnosisTypes = map[string]string{
	"ABK": DiagnosisPrincipal,
	"ABJ": DiagnosisPrincipal,
	"ABF": DiagnosisOther,
	"APR": DiagnosisReasonForVisit,
	"ABN": DiagnosisReasonForVisit,
	"BBR": DiagnosisAdmitting,
	"BBQ": DiagnosisOther,
	"BP":  DiagnosisExternalCause,
	"BG":  DiagnosisDRG,
	"DR":  DiagnosisDRG,
}

// Provider roles keyed by NM101 entity identifier.
const (
	RoleBilling         = "billing"
	RoleAttending       = "attending"
	RoleOperating       = "operating"
	RoleRendering       = "rendering"
	RoleServiceLocation = "service_location"
	RoleReferring       = "referring"
	RoleSupervising     = "supervising"
	RoleOther           = "other"
)

var providerRoles = map[string]string{
	"85": RoleBilling,
	"71": RoleAttending,
	"72": RoleOperating,
	"82": RoleRendering,
	"77": RoleServiceLocation,
	"DN": RoleReferring,
	"DQ": RoleSupervising,
	"OB": RoleOther,
	"IL": RoleOther,
	"QC": RoleOther,
}

var referenceQualifiers = map[string]string{
	"9A": "Repriced Claim Reference",
	"9B": "Referral Number",
	"D9": "Claim Identifier",
	"EA": "Medical Record Number",
	"F8": "Resubmission Original Reference",
	"G1": "Prior Authorization Number",
}

func lookup(table map[string]string, code string) (string, bool) {
	desc, ok := table[code]
	return desc, ok
}

func describe(table map[string]string, code string) string {
	desc, _ := lookup(table, code)
	return desc
}

// FacilityTypeDescription returns the description of a CLM05-1 code.
func FacilityTypeDescription(code string) (string, bool) { return lookup(facilityTypes, code) }

// FrequencyDescription returns the description of a CLM05-3 code.
func FrequencyDescription(code string) (string, bool) { return lookup(frequencyTypes, code) }

// FilingIndicatorDescription returns the description of an SBR09 code.
func FilingIndicatorDescription(code string) (string, bool) { return lookup(filingIndicators, code) }

// DateQualifierDescription returns the description of a DTP01 qualifier.
func DateQualifierDescription(code string) (string, bool) { return lookup(dateQualifiers, code) }

// ReferenceQualifierDescription returns the description of a REF01 qualifier.
func ReferenceQualifierDescription(code string) (string, bool) {
	return lookup(referenceQualifiers, code)
}

// DiagnosisType maps an HI qualifier to a diagnosis type; unknown
// qualifiers map to DiagnosisOther with known=false.
func DiagnosisType(qualifier string) (string, bool) {
	if t, ok := diagnosisTypes[qualifier]; ok {
		return t, true
	}
	return DiagnosisOther, false
}

// ProviderRole maps an NM101 code to a role; unknown codes map to
// RoleOther with known=false.
func ProviderRole(code string) (string, bool) {
	if r, ok := providerRoles[code]; ok {
		return r, true
	}
	return RoleOther, false
}
