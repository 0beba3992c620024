// Package filelog records which interchange files have been loaded, keyed
// by content hash, so a re-run skips files it has already stored.
package filelog

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("filelog: entry not found")

// StatusProcessed is reported for every logged file.
const StatusProcessed = "processed"

type Entry struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	FileName    string          `db:"file_name" json:"file_name"`
	FileType    string          `db:"file_type" json:"file_type"`
	FileHash    string          `db:"file_hash" json:"file_hash"`
	RecordCount int             `db:"record_count" json:"record_count"`
	Summary     json.RawMessage `db:"parse_summary" json:"parse_summary,omitempty"`
	LoadedAt    time.Time       `db:"loaded_at" json:"loaded_at"`
}

func (e *Entry) Status() string { return StatusProcessed }

// NewEntry builds an entry with summary encoded as JSON.
func NewEntry(fileName, fileType, hash string, records int, summary any) (*Entry, error) {
	e := &Entry{
		FileName:    fileName,
		FileType:    fileType,
		FileHash:    hash,
		RecordCount: records,
	}
	if summary != nil {
		raw, err := json.Marshal(summary)
		if err != nil {
			return nil, err
		}
		e.Summary = raw
	}
	return e, nil
}

// Repository is the edi_file_log store. Record is a no-op for a hash that
// is already logged and reports whether a row was written.
type Repository interface {
	Exists(ctx context.Context, hash string) (bool, error)
	Record(ctx context.Context, e *Entry) (bool, error)
	GetByHash(ctx context.Context, hash string) (*Entry, error)
	List(ctx context.Context, limit, offset int) ([]*Entry, int, error)
}
