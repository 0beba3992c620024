package pipeline

import (
	"errors"
	"fmt"

	"github.com/edi/edi/internal/domain/claims"
	"github.com/edi/edi/internal/domain/remittance"
	"github.com/edi/edi/internal/platform/x12"
)

// Kind is the transaction set a file carries.
type Kind string

const (
	KindClaims     Kind = claims.FileType
	KindRemittance Kind = remittance.FileType
)

var ErrUnknownKind = errors.New("pipeline: unsupported transaction set")

// DetectKind reads ST01: 837 is a professional claim file, 835 a
// remittance.
func DetectKind(doc *x12.Document) (Kind, error) {
	switch set := doc.TransactionSet(); set {
	case "837":
		return KindClaims, nil
	case "835":
		return KindRemittance, nil
	case "":
		return "", fmt.Errorf("%w: no ST segment", ErrUnknownKind)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, set)
	}
}
