package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/everstacklabs/hfest/internal/accelerator"
	"github.com/everstacklabs/hfest/internal/capacity"
	"github.com/everstacklabs/hfest/internal/estimate"
)

// Resource is the outcome of checking an estimate against local accelerators.
type Resource struct {
	RepoID    string                     `json:"repo_id" yaml:"repo_id"`
	Format    estimate.Format            `json:"format" yaml:"format"`
	Precision string                     `json:"precision" yaml:"precision"`
	SizeBytes uint64                     `json:"size_bytes" yaml:"size_bytes"`
	Margin    float64                    `json:"margin" yaml:"margin"`
	Mode      string                     `json:"gpu_config" yaml:"gpu_config"`
	Host      accelerator.Host           `json:"host" yaml:"host"`
	Verdicts  []capacity.Verdict         `json:"verdicts" yaml:"verdicts"`
	Aggregate *capacity.Verdict          `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
	Reports   []accelerator.VendorReport `json:"vendor_reports" yaml:"vendor_reports"`
	Notes     []string                   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Fits reports the overall decision: the pooled verdict in distributed
// mode, otherwise whether any single device fits.
func (r *Resource) Fits() bool {
	if r.Aggregate != nil {
		return r.Aggregate.Fits
	}
	return capacity.AnyFits(r.Verdicts)
}

// ResourceText writes a capacity report.
func ResourceText(w io.Writer, r *Resource, p Palette) {
	fmt.Fprintf(w, "Model: %s\n", p.Bold(r.RepoID))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "File Type: %s\n", r.Format)
	fmt.Fprintf(w, "Precision: %s\n", r.Precision)
	fmt.Fprintf(w, "Estimated Size: %s\n", GB(float64(r.SizeBytes)))
	fmt.Fprintf(w, "Required With %.0f%% Margin: %s\n", r.Margin*100, GB(capacity.Required(r.SizeBytes, r.Margin)))
	fmt.Fprintf(w, "Host: %s\n", hostLine(r.Host))
	for _, n := range r.Notes {
		fmt.Fprintf(w, "%s %s\n", p.Warn("note:"), n)
	}

	if len(r.Verdicts) == 0 {
		fmt.Fprintln(w, p.Warn("No accelerators detected."))
	} else {
		tw := newTable(w)
		tw.AppendHeader(table.Row{"#", "Vendor", "Device", "Total", "Used", "Free", "Result"})
		for _, v := range r.Verdicts {
			d := v.Device
			tw.AppendRow(table.Row{d.Index, d.Vendor, d.Name, MiB(d.TotalMB), MiB(d.UsedMB), MiB(d.FreeMB), verdict(v, p)})
		}
		tw.SetColumnConfigs(rightAligned(4, 5, 6))
		tw.Render()
	}

	if a := r.Aggregate; a != nil {
		fmt.Fprintf(w, "Distributed (%d devices, %s free): %s\n", len(r.Verdicts), GB(a.Available), verdict(*a, p))
	}
	vendorFailures(w, r.Reports, p)

	if r.Fits() {
		fmt.Fprintln(w, p.OK("The model fits."))
	} else {
		fmt.Fprintln(w, p.Fail("The model does not fit on the available accelerators."))
	}
}

func verdict(v capacity.Verdict, p Palette) string {
	if v.Fits {
		return p.OK("fits")
	}
	return p.Fail(fmt.Sprintf("short %s", GB(v.Shortfall())))
}

func hostLine(h accelerator.Host) string {
	s := string(h.OS)
	if h.Platform != "" {
		s += " (" + h.Platform
		if h.Version != "" {
			s += " " + h.Version
		}
		s += ")"
	}
	return s
}

func vendorFailures(w io.Writer, reports []accelerator.VendorReport, p Palette) {
	for _, rep := range reports {
		if rep.Err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", p.Warn("unavailable:"), rep.Vendor, rep.Err)
		}
	}
}
