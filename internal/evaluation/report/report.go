// Package report renders evaluation reports for the terminal or as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/internal/evaluation"
	apperrors "github.com/Adithya-Monish-Kumar-K/Movie-Search-Evaluation/pkg/errors"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

const rule = "-----------------------------------------------"

// Write renders r to w in the given format.
func Write(w io.Writer, r *evaluation.Report, format string) error {
	switch format {
	case FormatText, "":
		return writeText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, "unknown report format %q", format)
	}
}

func writeText(w io.Writer, r *evaluation.Report) error {
	var b strings.Builder
	for _, fr := range r.Fields {
		fmt.Fprintf(&b, "####### Field: %s\n", fr.Field)
		for _, q := range fr.Queries {
			fmt.Fprintln(&b, rule)
			fmt.Fprintf(&b, "       Query: %s\n", q.Query)
			fmt.Fprintln(&b, rule)
			if q.Skipped {
				fmt.Fprintln(&b, "skipped: no search terms")
				continue
			}
			fmt.Fprintf(&b, "P@%d: %.4f\n", r.K, q.PrecisionAtK)
			fmt.Fprintf(&b, "P@R: %.4f\n", q.PrecisionAtR)
			fmt.Fprintf(&b, "AP: %.4f\n", q.AP)
		}
		fmt.Fprintf(&b, "MP@%d: %.4f MP@R: %.4f MAP: %.4f (evaluated %d, skipped %d)\n\n",
			r.K, fr.MeanPrecisionAtK, fr.MeanPrecisionAtR, fr.MAP, fr.Evaluated, fr.Skipped)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	return writeSummary(w, r)
}

// writeSummary prints one aligned row per field.
func writeSummary(w io.Writer, r *evaluation.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "FIELD\tMP@%d\tMP@R\tMAP\tEVALUATED\tSKIPPED\n", r.K)
	for _, fr := range r.Fields {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%d\t%d\n",
			fr.Field, fr.MeanPrecisionAtK, fr.MeanPrecisionAtR, fr.MAP, fr.Evaluated, fr.Skipped)
	}
	fmt.Fprintf(tw, "run %s\n", r.RunID)
	return tw.Flush()
}
