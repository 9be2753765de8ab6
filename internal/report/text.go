package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText prints the human summary: baseline against optimised NDCG, the
// improvement, per-weight changes and per-method outcomes.
func WriteText(w io.Writer, doc Document) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (seed %d)\n", doc.RunID, doc.Seed)
	fmt.Fprintf(&b, "NDCG@%d, %s relevance, profiles without ground truth: %s (%d evaluated)\n\n",
		doc.K, doc.Relevance, doc.Policy, doc.Evaluated)
	fmt.Fprintf(&b, "Baseline NDCG:  %.4f\n", doc.Baseline.Score)
	fmt.Fprintf(&b, "Optimized NDCG: %.4f (%s)\n", doc.Best.Score, doc.BestMethod)
	fmt.Fprintf(&b, "Improvement:    %+.4f (%+.1f%%)\n\n", doc.Improvement, doc.RelativePct)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WEIGHT\tBASELINE\tOPTIMIZED\tCHANGE")
	for _, c := range doc.Changes {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%+.2f\n", c.Name, c.Baseline, c.Optimized, c.Delta)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "METHOD\tNDCG\tEVALS\tDURATION\tIMPROVED\tSTOP")
	for _, m := range doc.Methods {
		fmt.Fprintf(tw, "%s\t%.4f\t%d\t%s\t%t\t%s\n", m.Name, m.Score, m.Evaluations, m.Duration, m.Improved, m.Stop)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, warn := range doc.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warn); err != nil {
			return err
		}
	}
	return nil
}
