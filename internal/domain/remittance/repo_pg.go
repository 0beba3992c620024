package remittance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edi/edi/internal/domain/matching"
	"github.com/edi/edi/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *paymentRepoPG) Save(ctx context.Context, p *Payment) error {
	var headerID uuid.NullUUID
	var strategy, reason string
	if p.Match != nil {
		headerID, strategy, reason = p.Match.ClaimHeaderID, string(p.Match.Strategy), p.Match.ReasonCode
	}

	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		err := q.QueryRow(ctx, `
			INSERT INTO claim_payments (id, natural_key, file_name, patient_control_number, payer_claim_control_number,
				claim_status_code, claim_status_desc, total_charge_amount, paid_amount, patient_responsibility_amount,
				claim_filing_indicator_code, claim_filing_indicator_desc, facility_type_code, claim_frequency_code,
				patient_last_name, patient_first_name, payer_name, payer_id, payee_name, payee_npi,
				payment_method, check_number, check_date, payment_date, statement_start, statement_end,
				claim_header_id, match_strategy, match_reason_code)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
			ON CONFLICT (natural_key) DO UPDATE SET
				payer_claim_control_number = EXCLUDED.payer_claim_control_number,
				claim_status_code = EXCLUDED.claim_status_code,
				claim_status_desc = EXCLUDED.claim_status_desc,
				total_charge_amount = EXCLUDED.total_charge_amount,
				paid_amount = EXCLUDED.paid_amount,
				patient_responsibility_amount = EXCLUDED.patient_responsibility_amount,
				claim_filing_indicator_code = EXCLUDED.claim_filing_indicator_code,
				claim_filing_indicator_desc = EXCLUDED.claim_filing_indicator_desc,
				facility_type_code = EXCLUDED.facility_type_code,
				claim_frequency_code = EXCLUDED.claim_frequency_code,
				patient_last_name = EXCLUDED.patient_last_name,
				patient_first_name = EXCLUDED.patient_first_name,
				payer_name = EXCLUDED.payer_name,
				payer_id = EXCLUDED.payer_id,
				payee_name = EXCLUDED.payee_name,
				payee_npi = EXCLUDED.payee_npi,
				payment_method = EXCLUDED.payment_method,
				check_date = EXCLUDED.check_date,
				statement_start = EXCLUDED.statement_start,
				statement_end = EXCLUDED.statement_end,
				claim_header_id = EXCLUDED.claim_header_id,
				match_strategy = EXCLUDED.match_strategy,
				match_reason_code = EXCLUDED.match_reason_code,
				updated_at = NOW()
			RETURNING id`,
			uuid.New(), p.NaturalKey(), p.FileName, p.PatientControlNumber, p.PayerClaimControlNumber,
			p.StatusCode, p.StatusDesc, p.TotalCharge, p.PaidAmount, p.PatientResponsibility,
			p.FilingIndicatorCode, p.FilingIndicatorDesc, p.FacilityTypeCode, p.FrequencyCode,
			p.PatientLastName, p.PatientFirstName, p.PayerName, p.PayerID, p.PayeeName, p.PayeeNPI,
			p.PaymentMethod, p.CheckNumber, p.CheckDate, p.PaymentDate, p.StatementStart, p.StatementEnd,
			headerID, strategy, reason,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("upsert claim payment %s: %w", p.PatientControlNumber, err)
		}

		// Adjustments go with their lines through the cascade.
		if _, err := q.Exec(ctx, `DELETE FROM claim_adjustments WHERE claim_payment_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear claim_adjustments: %w", err)
		}
		if _, err := q.Exec(ctx, `DELETE FROM claim_payment_lines WHERE claim_payment_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear claim_payment_lines: %w", err)
		}
		return r.insertChildren(ctx, q, p)
	})
}

func (r *paymentRepoPG) insertChildren(ctx context.Context, q queryable, p *Payment) error {
	for i, a := range p.Adjustments {
		if err := insertAdjustment(ctx, q, p.ID, nil, i, a); err != nil {
			return err
		}
	}
	for i, l := range p.ServiceLines {
		lineID := uuid.New()
		if _, err := q.Exec(ctx, `
			INSERT INTO claim_payment_lines (id, claim_payment_id, position, procedure_code, procedure_qualifier,
				revenue_code, modifier_1, modifier_2, modifier_3, modifier_4,
				charge_amount, paid_amount, units, service_date, line_control_number)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			lineID, p.ID, i, l.ProcedureCode, l.ProcedureQualifier,
			l.RevenueCode, l.Modifier(1), l.Modifier(2), l.Modifier(3), l.Modifier(4),
			l.ChargeAmount, l.PaidAmount, l.Units, l.ServiceDate, l.ControlNumber); err != nil {
			return fmt.Errorf("insert payment line: %w", err)
		}
		for j, a := range l.Adjustments {
			if err := insertAdjustment(ctx, q, p.ID, &lineID, j, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertAdjustment(ctx context.Context, q queryable, paymentID uuid.UUID, lineID *uuid.UUID, pos int, a Adjustment) error {
	_, err := q.Exec(ctx, `
		INSERT INTO claim_adjustments (id, claim_payment_id, claim_payment_line_id, adjustment_level, position,
			group_code, group_desc, reason_code, reason_desc, amount, quantity)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		uuid.New(), paymentID, lineID, a.Level, pos,
		a.GroupCode, a.GroupDesc, a.ReasonCode, a.ReasonDesc, a.Amount, a.Quantity)
	if err != nil {
		return fmt.Errorf("insert %s adjustment: %w", a.Level, err)
	}
	return nil
}

const paymentCols = `id, file_name, patient_control_number, payer_claim_control_number,
	claim_status_code, claim_status_desc, total_charge_amount, paid_amount, patient_responsibility_amount,
	claim_filing_indicator_code, claim_filing_indicator_desc, facility_type_code, claim_frequency_code,
	patient_last_name, patient_first_name, payer_name, payer_id, payee_name, payee_npi,
	payment_method, check_number, check_date, payment_date, statement_start, statement_end,
	claim_header_id, match_strategy, match_reason_code`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var m matching.Result
	var strategy string
	err := row.Scan(&p.ID, &p.FileName, &p.PatientControlNumber, &p.PayerClaimControlNumber,
		&p.StatusCode, &p.StatusDesc, &p.TotalCharge, &p.PaidAmount, &p.PatientResponsibility,
		&p.FilingIndicatorCode, &p.FilingIndicatorDesc, &p.FacilityTypeCode, &p.FrequencyCode,
		&p.PatientLastName, &p.PatientFirstName, &p.PayerName, &p.PayerID, &p.PayeeName, &p.PayeeNPI,
		&p.PaymentMethod, &p.CheckNumber, &p.CheckDate, &p.PaymentDate, &p.StatementStart, &p.StatementEnd,
		&m.ClaimHeaderID, &strategy, &m.ReasonCode)
	if err != nil {
		return nil, err
	}
	if strategy != "" {
		m.Strategy = matching.Strategy(strategy)
		p.Match = &m
	}
	return &p, nil
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	q := r.conn(ctx)
	p, err := scanPayment(q.QueryRow(ctx, `SELECT `+paymentCols+` FROM claim_payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, q, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepoPG) ListByClaim(ctx context.Context, claimHeaderID uuid.UUID) ([]Payment, error) {
	q := r.conn(ctx)
	rows, err := q.Query(ctx, `SELECT `+paymentCols+` FROM claim_payments
		WHERE claim_header_id = $1 ORDER BY payment_date NULLS LAST, created_at`, claimHeaderID)
	if err != nil {
		return nil, err
	}
	payments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		p, err := scanPayment(row)
		if err != nil {
			return Payment{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	for i := range payments {
		if err := r.loadChildren(ctx, q, &payments[i]); err != nil {
			return nil, err
		}
	}
	return payments, nil
}

type adjustmentRow struct {
	lineID uuid.NullUUID
	adj    Adjustment
}

func (r *paymentRepoPG) loadChildren(ctx context.Context, q queryable, p *Payment) error {
	rows, err := q.Query(ctx, `
		SELECT id, procedure_code, procedure_qualifier, revenue_code, modifier_1, modifier_2, modifier_3, modifier_4,
			charge_amount, paid_amount, units, service_date, line_control_number
		FROM claim_payment_lines WHERE claim_payment_id = $1 ORDER BY position`, p.ID)
	if err != nil {
		return err
	}
	lineIndex := map[uuid.UUID]int{}
	p.ServiceLines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ServiceLine, error) {
		var id uuid.UUID
		var l ServiceLine
		var mods [MaxModifiers]string
		err := row.Scan(&id, &l.ProcedureCode, &l.ProcedureQualifier, &l.RevenueCode,
			&mods[0], &mods[1], &mods[2], &mods[3],
			&l.ChargeAmount, &l.PaidAmount, &l.Units, &l.ServiceDate, &l.ControlNumber)
		for _, m := range mods {
			if m != "" {
				l.Modifiers = append(l.Modifiers, m)
			}
		}
		l.Adjustments = []Adjustment{}
		lineIndex[id] = len(lineIndex)
		return l, err
	})
	if err != nil {
		return fmt.Errorf("load payment lines: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT claim_payment_line_id, adjustment_level, group_code, group_desc, reason_code, reason_desc, amount, quantity
		FROM claim_adjustments WHERE claim_payment_id = $1 ORDER BY claim_payment_line_id NULLS FIRST, position`, p.ID)
	if err != nil {
		return err
	}
	adjs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (adjustmentRow, error) {
		var ar adjustmentRow
		a := &ar.adj
		err := row.Scan(&ar.lineID, &a.Level, &a.GroupCode, &a.GroupDesc, &a.ReasonCode, &a.ReasonDesc, &a.Amount, &a.Quantity)
		_, a.GroupKnown = AdjustmentGroupDescription(a.GroupCode)
		_, a.ReasonKnown = ReasonCodeDescription(a.ReasonCode)
		return ar, err
	})
	if err != nil {
		return fmt.Errorf("load adjustments: %w", err)
	}

	p.Adjustments = []Adjustment{}
	for _, ar := range adjs {
		if !ar.lineID.Valid {
			p.Adjustments = append(p.Adjustments, ar.adj)
			continue
		}
		if i, ok := lineIndex[ar.lineID.UUID]; ok {
			p.ServiceLines[i].Adjustments = append(p.ServiceLines[i].Adjustments, ar.adj)
		}
	}
	return nil
}
