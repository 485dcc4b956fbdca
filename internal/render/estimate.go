package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/everstacklabs/hfest/internal/estimate"
)

// Estimate writes the size estimate for one repository.
func Estimate(w io.Writer, res *estimate.Result, p Palette) {
	fmt.Fprintf(w, "Model: %s\n", p.Bold(res.RepoID))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Repository Size: %s\n", GB(res.Metadata.UsedStorage))
	fmt.Fprintf(w, "Model Parameter Count: %s\n", Count(res.Metadata.ParamCount))

	if dt := res.DTypes; dt != nil {
		fmt.Fprintln(w, "Model Data Type:")
		primary := dt.Primary
		if primary == "" {
			primary = "unknown"
		}
		fmt.Fprintf(w, "  • Main data type: %s\n", primary)
		for i, a := range dt.Additional {
			fmt.Fprintf(w, "  • Additional data type %d: %s\n", i+1, a)
		}
	}

	fmt.Fprintln(w, "Estimated Model File Distribution:")
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Format", "Files", "Sampled", "Estimate", "Method"})
	for _, be := range res.Estimates {
		tw.AppendRow(table.Row{be.Format, be.Files, sampled(be), GB(float64(be.Bytes)), method(be, p)})
	}
	tw.SetColumnConfigs(rightAligned(2, 3, 4))
	tw.Render()
}

func sampled(be estimate.BucketEstimate) string {
	if be.Method != estimate.MethodSampled && be.Sampled == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d known", be.Known, be.Sampled)
}

func method(be estimate.BucketEstimate, p Palette) string {
	switch be.Method {
	case estimate.MethodParams:
		return fmt.Sprintf("parameters × %s", be.DType.Name)
	case estimate.MethodSampled:
		return "sampled file sizes"
	}
	if be.Files > 0 {
		return p.Warn("sizes unknown")
	}
	return "-"
}
