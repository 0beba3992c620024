package remittance

// Code tables for 835.

var claimStatuses = map[string]string{
	"1":  "Processed as Primary",
	"2":  "Processed as Secondary",
	"3":  "Processed as Tertiary",
	"4":  "Denied",
	"19": "Processed as Primary, Forwarded to Additional Payer(s)",
	"20": "Processed as Secondary, Forwarded to Additional Payer(s)",
	"21": "Processed as Tertiary, Forwarded to Additional Payer(s)",
	"22": "Reversal of Previous Payment",
	"23": "Not Our Claim, Forwarded to Additional Payer(s)",
	"25": "Reject into payment cycle",
}

var adjustmentGroups = map[string]string{
	"CO": "Contractual Obligation",
	"PR": "Patient Responsibility",
	"OA": "Other Adjustment",
	"PI": "Payer Initiated Reduction",
	"CR": "Correction/Reversal",
}

// reasonCodes holds the claim adjustment reason codes (CARC) seen most
// often on professional remittances. Others are reported as unknown.
var reasonCodes = map[string]string{
	"1":   "Deductible Amount",
	"2":   "Coinsurance Amount",
	"3":   "Copayment Amount",
	"4":   "Procedure code inconsistent with modifier",
	"5":   "Procedure code inconsistent with place of service",
	"6":   "Procedure/revenue code inconsistent with diagnosis",
	"9":   "Services not authorized",
	"16":  "Claim lacks information needed for adjudication",
	"18":  "Exact duplicate claim/service",
	"22":  "Care may be covered by another payer",
	"23":  "Charges included in allowance for another service",
	"24":  "Charges covered under capitation",
	"26":  "Expenses incurred prior to coverage",
	"27":  "Expenses incurred after coverage",
	"29":  "Time limit for filing has expired",
	"31":  "Patient not eligible for service on date of service",
	"35":  "Lifetime benefit maximum has been reached",
	"39":  "Services denied at the time authorization/pre-certification was requested",
	"45":  "Charges exceed contracted/legislated fee arrangement",
	"49":  "Non-covered because it is a routine/preventive exam",
	"50":  "Non-covered services",
	"55":  "Procedure requires prior authorization",
	"96":  "Non-covered charge(s)",
	"97":  "Benefit not included in current contract/plan",
	"109": "Not covered by this payer/contractor",
	"119": "Benefit maximum for this time period/occurrence has been reached",
	"167": "Diagnosis is not covered",
	"197": "Precertification/authorization/notification absent",
	"204": "Service not covered/authorized",
	"242": "Services not provided by designated provider",
	"252": "Service not on approved list",
	"A1":  "Claim/service denied (Claim PPS)",
	"A6":  "Prior hospitalization or 30-day transfer requirement not met",
	"B7":  "Provider not certified/eligible to be paid for this procedure",
	"B15": "Coverage not in effect at the time the service was provided",
}

var paymentMethods = map[string]string{
	"ACH": "Automated Clearing House",
	"CHK": "Check",
	"FWT": "Federal Wire Transfer",
	"NON": "Non-Payment Data",
}

var dateQualifiers = map[string]string{
	"036": "Expiration Date",
	"050": "Received Date",
	"232": "Claim Statement Period Start",
	"233": "Claim Statement Period End",
	"405": "Production Date",
	"472": "Service Date",
	"573": "Date Claim Paid",
}

var filingIndicators = map[string]string{
	"12": "PPO",
	"13": "POS",
	"14": "EPO",
	"15": "Indemnity",
	"MA": "Medicare Part A",
	"MB": "Medicare Part B",
	"MC": "Medicaid",
	"BL": "BCBS",
	"CI": "Commercial",
	"HM": "HMO",
	"WC": "Workers Comp",
	"CH": "TRICARE",
}

func lookup(table map[string]string, code string) (string, bool) {
	desc, ok := table[code]
	return desc, ok
}

func describe(table map[string]string, code string) string {
	desc, _ := lookup(table, code)
	return desc
}

// IsAdjustmentGroup reports whether code is a recognized CAS01 group.
func IsAdjustmentGroup(code string) bool {
	_, ok := adjustmentGroups[code]
	return ok
}

// AdjustmentGroupDescription returns the description of a CAS group code.
func AdjustmentGroupDescription(code string) (string, bool) { return lookup(adjustmentGroups, code) }

// ReasonCodeDescription returns the description of a CARC.
func ReasonCodeDescription(code string) (string, bool) { return lookup(reasonCodes, code) }

// ClaimStatusDescription returns the description of a CLP02 code.
func ClaimStatusDescription(code string) (string, bool) { return lookup(claimStatuses, code) }

// PaymentMethodDescription returns the description of a BPR04 code.
func PaymentMethodDescription(code string) (string, bool) { return lookup(paymentMethods, code) }
