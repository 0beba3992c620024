package pipeline

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edi/edi/internal/domain/claims"
	"github.com/edi/edi/internal/domain/filelog"
	"github.com/edi/edi/internal/domain/remittance"
	"github.com/edi/edi/internal/platform/db"
)

// Loader writes decoded files to the store. With a pool every file is
// loaded in one transaction; without one (tests, in-memory repositories)
// writes go straight to the repositories.
type Loader struct {
	Pool        *pgxpool.Pool
	Claims      claims.Repository
	Remittances remittance.Repository
	Files       filelog.Repository
}

// NewPGLoader wires the pgx repositories onto pool.
func NewPGLoader(pool *pgxpool.Pool) *Loader {
	return &Loader{
		Pool:        pool,
		Claims:      claims.NewRepoPG(pool),
		Remittances: remittance.NewRepoPG(pool),
		Files:       filelog.NewRepoPG(pool),
	}
}

// Seen reports whether a file with this hash is already logged.
func (l *Loader) Seen(ctx context.Context, hash string) (bool, error) {
	if l.Files == nil {
		return false, nil
	}
	return l.Files.Exists(ctx, hash)
}

func (l *Loader) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if l.Pool == nil {
		return fn(ctx)
	}
	return db.InTx(ctx, l.Pool, fn)
}

// LoadClaims saves every claim, assigning IDs, then logs the file.
func (l *Loader) LoadClaims(ctx context.Context, f *claims.File) error {
	return l.inTx(ctx, func(ctx context.Context) error {
		for i := range f.Claims {
			if err := l.Claims.Save(ctx, &f.Claims[i]); err != nil {
				return fmt.Errorf("save claim %s: %w", f.Claims[i].ClaimID, err)
			}
		}
		return l.record(ctx, f.FileName, f.FileType, f.FileHash, f.ClaimCount, f.Summary)
	})
}

// LoadRemittance saves every payment and writes the adjudication back to
// the claim each matched payment points at.
func (l *Loader) LoadRemittance(ctx context.Context, f *remittance.File) error {
	return l.inTx(ctx, func(ctx context.Context) error {
		for i := range f.Payments {
			p := &f.Payments[i]
			if err := l.Remittances.Save(ctx, p); err != nil {
				return fmt.Errorf("save payment %s: %w", p.PatientControlNumber, err)
			}
			if p.Match == nil || !p.Match.Matched() || l.Claims == nil {
				continue
			}
			status := claims.StatusFromPayment(p.StatusCode, p.PaidAmount)
			err := l.Claims.ApplyPayment(ctx, p.Match.ClaimHeaderID.UUID, status, p.PaidAmount, p.PatientResponsibility)
			if err != nil {
				return fmt.Errorf("apply payment %s: %w", p.PatientControlNumber, err)
			}
		}
		return l.record(ctx, f.FileName, f.FileType, f.FileHash, f.PaymentCount, f.Summary)
	})
}

func (l *Loader) record(ctx context.Context, name, fileType, hash string, records int, summary any) error {
	if l.Files == nil {
		return nil
	}
	e, err := filelog.NewEntry(name, fileType, hash, records, summary)
	if err != nil {
		return fmt.Errorf("encode parse summary: %w", err)
	}
	if _, err := l.Files.Record(ctx, e); err != nil {
		return err
	}
	return nil
}
