package pipeline

import (
	"time"

	"github.com/edi/edi/internal/domain/claims"
	"github.com/edi/edi/internal/domain/remittance"
)

const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Side-effect stages. A failure in one of them is reported on the outcome
// and never fails the file.
const (
	StageArchive = "archive"
	StageMatch   = "match"
	StageLoad    = "load"
	StagePublish = "publish"
)

const SkipAlreadyLoaded = "already loaded"

type SideEffectError struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// Outcome is the result of processing one file.
type Outcome struct {
	Path        string            `json:"path"`
	FileName    string            `json:"file_name"`
	Kind        Kind              `json:"kind,omitempty"`
	Hash        string            `json:"file_hash,omitempty"`
	Size        int64             `json:"size"`
	Records     int               `json:"records"`
	Status      string            `json:"status"`
	SkipReason  string            `json:"skip_reason,omitempty"`
	Error       string            `json:"error,omitempty"`
	SideEffects []SideEffectError `json:"side_effect_errors,omitempty"`
	Duration    time.Duration     `json:"duration"`

	Err        error            `json:"-"`
	Claims     *claims.File     `json:"-"`
	Remittance *remittance.File `json:"-"`

	raw []byte
}

func (o *Outcome) fail(err error) {
	o.Status = StatusFailed
	o.Err = err
	o.Error = err.Error()
}

func (o *Outcome) sideEffect(stage string, err error) {
	o.SideEffects = append(o.SideEffects, SideEffectError{Stage: stage, Error: err.Error()})
}

// Failed reports whether the file could not be decoded.
func (o *Outcome) Failed() bool { return o.Status == StatusFailed }

func (o *Outcome) kindLabel() string {
	if o.Kind == "" {
		return "unknown"
	}
	return string(o.Kind)
}
