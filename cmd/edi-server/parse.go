package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/edi/edi/internal/domain/claims"
	"github.com/edi/edi/internal/domain/remittance"
	"github.com/edi/edi/internal/pipeline"
	"github.com/edi/edi/internal/platform/archive"
	"github.com/edi/edi/internal/platform/x12"
)

func parseCmd() *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Decode 837P or 835 files and print them as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			for _, path := range args {
				decoded, err := decodeFile(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := enc.Encode(decoded); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "one JSON document per line")
	return cmd
}

// decodeFile returns a *claims.File or *remittance.File depending on the
// interchange's transaction set.
func decodeFile(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	doc, err := x12.Parse(raw)
	if err != nil {
		return nil, err
	}
	kind, err := pipeline.DetectKind(doc)
	if err != nil {
		return nil, err
	}

	name, hash := filepath.Base(path), archive.Hash(raw)
	if kind == pipeline.KindClaims {
		return claims.Decode(name, hash, doc), nil
	}
	return remittance.Decode(name, hash, doc), nil
}
