package claims

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/edi/edi/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

var childTables = []string{"claim_lines", "claim_diagnoses", "claim_dates", "claim_providers", "claim_references"}

func (r *claimRepoPG) Save(ctx context.Context, c *Claim) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		sub, pat := personOrEmpty(c.Subscriber), personOrEmpty(c.Patient)

		err := q.QueryRow(ctx, `
			INSERT INTO claim_headers (id, claim_id, file_name, file_type, total_charge_amount,
				facility_type_code, facility_type_desc, facility_code_qualifier,
				claim_frequency_type_code, claim_frequency_type_desc,
				assignment_code, assignment_desc, benefits_assignment, release_of_info_code,
				claim_filing_indicator_code, claim_filing_indicator_desc,
				payer_responsibility_code, payer_responsibility_desc, payer_name, payer_id,
				subscriber_last_name, subscriber_first_name, subscriber_member_id,
				patient_last_name, patient_first_name,
				prior_auth_number, prior_auth_status, original_claim_id, has_service_lines)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
			ON CONFLICT (claim_id, file_name) DO UPDATE SET
				total_charge_amount = EXCLUDED.total_charge_amount,
				facility_type_code = EXCLUDED.facility_type_code,
				facility_type_desc = EXCLUDED.facility_type_desc,
				facility_code_qualifier = EXCLUDED.facility_code_qualifier,
				claim_frequency_type_code = EXCLUDED.claim_frequency_type_code,
				claim_frequency_type_desc = EXCLUDED.claim_frequency_type_desc,
				assignment_code = EXCLUDED.assignment_code,
				assignment_desc = EXCLUDED.assignment_desc,
				benefits_assignment = EXCLUDED.benefits_assignment,
				release_of_info_code = EXCLUDED.release_of_info_code,
				claim_filing_indicator_code = EXCLUDED.claim_filing_indicator_code,
				claim_filing_indicator_desc = EXCLUDED.claim_filing_indicator_desc,
				payer_responsibility_code = EXCLUDED.payer_responsibility_code,
				payer_responsibility_desc = EXCLUDED.payer_responsibility_desc,
				payer_name = EXCLUDED.payer_name,
				payer_id = EXCLUDED.payer_id,
				subscriber_last_name = EXCLUDED.subscriber_last_name,
				subscriber_first_name = EXCLUDED.subscriber_first_name,
				subscriber_member_id = EXCLUDED.subscriber_member_id,
				patient_last_name = EXCLUDED.patient_last_name,
				patient_first_name = EXCLUDED.patient_first_name,
				prior_auth_number = EXCLUDED.prior_auth_number,
				prior_auth_status = EXCLUDED.prior_auth_status,
				original_claim_id = EXCLUDED.original_claim_id,
				has_service_lines = EXCLUDED.has_service_lines,
				updated_at = NOW()
			RETURNING id`,
			uuid.New(), c.ClaimID, c.FileName, FileType, c.TotalCharge,
			c.FacilityTypeCode, c.FacilityTypeDesc, c.FacilityCodeQualifier,
			c.FrequencyCode, c.FrequencyDesc,
			c.AssignmentCode, c.AssignmentDesc, c.BenefitsAssignment, c.ReleaseOfInfoCode,
			c.FilingIndicatorCode, c.FilingIndicatorDesc,
			c.PayerResponsibilityCode, c.PayerResponsibilityDesc, c.PayerName, c.PayerID,
			sub.LastName, sub.FirstName, sub.ID,
			pat.LastName, pat.FirstName,
			c.PriorAuthNumber, c.PriorAuthStatus, c.OriginalClaimID, c.HasServiceLines(),
		).Scan(&c.ID)
		if err != nil {
			return fmt.Errorf("upsert claim header %s: %w", c.ClaimID, err)
		}

		for _, table := range childTables {
			if _, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE claim_header_id = $1`, c.ID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return r.insertChildren(ctx, q, c)
	})
}

func (r *claimRepoPG) insertChildren(ctx context.Context, q queryable, c *Claim) error {
	for i, l := range c.Lines {
		if _, err := q.Exec(ctx, `
			INSERT INTO claim_lines (id, claim_header_id, line_number, procedure_code, procedure_qualifier,
				modifier_1, modifier_2, modifier_3, modifier_4, charge_amount,
				unit_measurement_code, unit_count, place_of_service_code, diagnosis_pointers,
				line_control_number, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			uuid.New(), c.ID, l.LineNumber, l.ProcedureCode, l.ProcedureQualifier,
			l.Modifier(1), l.Modifier(2), l.Modifier(3), l.Modifier(4), l.ChargeAmount,
			l.UnitMeasurementCode, l.UnitCount, l.PlaceOfServiceCode, l.DiagnosisPointers,
			l.ControlNumber, i); err != nil {
			return fmt.Errorf("insert claim line: %w", err)
		}
	}
	for _, d := range c.Diagnoses {
		if _, err := q.Exec(ctx, `
			INSERT INTO claim_diagnoses (id, claim_header_id, sequence_number, diagnosis_code, diagnosis_type, code_qualifier)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			uuid.New(), c.ID, d.SequenceNumber, d.Code, d.Type, d.CodeQualifier); err != nil {
			return fmt.Errorf("insert diagnosis: %w", err)
		}
	}
	dates := append(append([]ClaimDate(nil), c.HeaderDates...), c.LineDates...)
	for i, d := range dates {
		var line *int
		if i >= len(c.HeaderDates) {
			n := d.LineNumber
			line = &n
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO claim_dates (id, claim_header_id, line_number, date_qualifier, date_qualifier_desc,
				date_format_qualifier, date_value, parsed_date, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			uuid.New(), c.ID, line, d.Qualifier, d.QualifierDesc,
			d.FormatQualifier, d.Value, d.Parsed, i); err != nil {
			return fmt.Errorf("insert claim date: %w", err)
		}
	}
	for i, p := range c.Providers {
		if _, err := q.Exec(ctx, `
			INSERT INTO claim_providers (id, claim_header_id, provider_role, entity_identifier_code,
				entity_type_qualifier, last_or_org_name, first_name, middle_name,
				id_code_qualifier, npi, taxonomy_code, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			uuid.New(), c.ID, p.Role, p.EntityIDCode,
			p.EntityTypeQualifier, p.LastOrOrgName, p.FirstName, p.MiddleName,
			p.IDQualifier, p.NPI, p.TaxonomyCode, i); err != nil {
			return fmt.Errorf("insert provider: %w", err)
		}
	}
	for i, ref := range c.References {
		if _, err := q.Exec(ctx, `
			INSERT INTO claim_references (id, claim_header_id, reference_qualifier, reference_qualifier_desc, reference_value, position)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			uuid.New(), c.ID, ref.Qualifier, ref.QualifierDesc, ref.Value, i); err != nil {
			return fmt.Errorf("insert reference: %w", err)
		}
	}
	return nil
}

const headerCols = `id, claim_id, file_name, total_charge_amount,
	facility_type_code, facility_type_desc, facility_code_qualifier,
	claim_frequency_type_code, claim_frequency_type_desc,
	assignment_code, assignment_desc, benefits_assignment, release_of_info_code,
	claim_filing_indicator_code, claim_filing_indicator_desc,
	payer_responsibility_code, payer_responsibility_desc, payer_name, payer_id,
	subscriber_last_name, subscriber_first_name, subscriber_member_id,
	patient_last_name, patient_first_name,
	prior_auth_number, prior_auth_status, original_claim_id,
	claim_status, paid_amount, patient_responsibility, created_at, updated_at`

func (r *claimRepoPG) scanHeader(row pgx.Row) (*Record, error) {
	var rec Record
	var sub, pat Person
	c := &rec.Claim
	err := row.Scan(&c.ID, &c.ClaimID, &c.FileName, &c.TotalCharge,
		&c.FacilityTypeCode, &c.FacilityTypeDesc, &c.FacilityCodeQualifier,
		&c.FrequencyCode, &c.FrequencyDesc,
		&c.AssignmentCode, &c.AssignmentDesc, &c.BenefitsAssignment, &c.ReleaseOfInfoCode,
		&c.FilingIndicatorCode, &c.FilingIndicatorDesc,
		&c.PayerResponsibilityCode, &c.PayerResponsibilityDesc, &c.PayerName, &c.PayerID,
		&sub.LastName, &sub.FirstName, &sub.ID,
		&pat.LastName, &pat.FirstName,
		&c.PriorAuthNumber, &c.PriorAuthStatus, &c.OriginalClaimID,
		&rec.Status, &rec.PaidAmount, &rec.PatientResponsibility, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if sub != (Person{}) {
		c.Subscriber = &sub
	}
	if pat != (Person{}) {
		c.Patient = &pat
	}
	return &rec, nil
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	q := r.conn(ctx)
	rec, err := r.scanHeader(q.QueryRow(ctx, `SELECT `+headerCols+` FROM claim_headers WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, q, &rec.Claim); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *claimRepoPG) loadChildren(ctx context.Context, q queryable, c *Claim) error {
	rows, err := q.Query(ctx, `
		SELECT line_number, procedure_code, procedure_qualifier, modifier_1, modifier_2, modifier_3, modifier_4,
			charge_amount, unit_measurement_code, unit_count, place_of_service_code, diagnosis_pointers, line_control_number
		FROM claim_lines WHERE claim_header_id = $1 ORDER BY position`, c.ID)
	if err != nil {
		return err
	}
	c.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ServiceLine, error) {
		var l ServiceLine
		var mods [MaxModifiers]string
		err := row.Scan(&l.LineNumber, &l.ProcedureCode, &l.ProcedureQualifier, &mods[0], &mods[1], &mods[2], &mods[3],
			&l.ChargeAmount, &l.UnitMeasurementCode, &l.UnitCount, &l.PlaceOfServiceCode, &l.DiagnosisPointers, &l.ControlNumber)
		for _, m := range mods {
			if m != "" {
				l.Modifiers = append(l.Modifiers, m)
			}
		}
		return l, err
	})
	if err != nil {
		return fmt.Errorf("load claim lines: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT sequence_number, diagnosis_code, diagnosis_type, code_qualifier
		FROM claim_diagnoses WHERE claim_header_id = $1 ORDER BY sequence_number`, c.ID)
	if err != nil {
		return err
	}
	c.Diagnoses, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Diagnosis, error) {
		var d Diagnosis
		err := row.Scan(&d.SequenceNumber, &d.Code, &d.Type, &d.CodeQualifier)
		_, d.QualifierKnown = DiagnosisType(d.CodeQualifier)
		return d, err
	})
	if err != nil {
		return fmt.Errorf("load diagnoses: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT line_number, date_qualifier, date_qualifier_desc, date_format_qualifier, date_value, parsed_date
		FROM claim_dates WHERE claim_header_id = $1 ORDER BY position`, c.ID)
	if err != nil {
		return err
	}
	dates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ClaimDate, error) {
		var d ClaimDate
		var line *int
		err := row.Scan(&line, &d.Qualifier, &d.QualifierDesc, &d.FormatQualifier, &d.Value, &d.Parsed)
		if line != nil {
			d.LineNumber = *line
		} else {
			d.LineNumber = -1
		}
		return d, err
	})
	if err != nil {
		return fmt.Errorf("load claim dates: %w", err)
	}
	c.HeaderDates, c.LineDates = []ClaimDate{}, []ClaimDate{}
	for _, d := range dates {
		if d.LineNumber < 0 {
			d.LineNumber = 0
			c.HeaderDates = append(c.HeaderDates, d)
			continue
		}
		c.LineDates = append(c.LineDates, d)
	}

	rows, err = q.Query(ctx, `
		SELECT provider_role, entity_identifier_code, entity_type_qualifier, last_or_org_name,
			first_name, middle_name, id_code_qualifier, npi, taxonomy_code
		FROM claim_providers WHERE claim_header_id = $1 ORDER BY position`, c.ID)
	if err != nil {
		return err
	}
	c.Providers, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Provider, error) {
		var p Provider
		err := row.Scan(&p.Role, &p.EntityIDCode, &p.EntityTypeQualifier, &p.LastOrOrgName,
			&p.FirstName, &p.MiddleName, &p.IDQualifier, &p.NPI, &p.TaxonomyCode)
		return p, err
	})
	if err != nil {
		return fmt.Errorf("load providers: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT reference_qualifier, reference_qualifier_desc, reference_value
		FROM claim_references WHERE claim_header_id = $1 ORDER BY position`, c.ID)
	if err != nil {
		return err
	}
	c.References, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (Reference, error) {
		var ref Reference
		err := row.Scan(&ref.Qualifier, &ref.QualifierDesc, &ref.Value)
		return ref, err
	})
	if err != nil {
		return fmt.Errorf("load references: %w", err)
	}
	return nil
}

func (r *claimRepoPG) ApplyPayment(ctx context.Context, id uuid.UUID, status string, paid, patientResp decimal.NullDecimal) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE claim_headers SET claim_status = $2, paid_amount = $3, patient_responsibility = $4, updated_at = NOW()
		WHERE id = $1`, id, status, paid, patientResp)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func personOrEmpty(p *Person) Person {
	if p == nil {
		return Person{}
	}
	return *p
}
