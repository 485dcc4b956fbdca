package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/everstacklabs/hfest/internal/accelerator"
)

// Devices writes an accelerator inventory.
func Devices(w io.Writer, inv *accelerator.Inventory, p Palette) {
	fmt.Fprintf(w, "Host: %s\n", hostLine(inv.Host))

	vendors := make([]string, len(inv.Vendors))
	for i, v := range inv.Vendors {
		vendors[i] = string(v)
	}
	if len(vendors) == 0 {
		vendors = []string{"none detected"}
	}
	fmt.Fprintf(w, "GPU Vendors: %s\n", strings.Join(vendors, ", "))
	if inv.DetectErr != nil {
		fmt.Fprintf(w, "%s vendor detection: %v\n", p.Warn("unavailable:"), inv.DetectErr)
	}

	if len(inv.Devices) > 0 {
		tw := newTable(w)
		tw.AppendHeader(table.Row{"#", "Vendor", "Device", "Total", "Used", "Free"})
		var total, free float64
		for _, d := range inv.Devices {
			tw.AppendRow(table.Row{d.Index, d.Vendor, d.Name, MiB(d.TotalMB), MiB(d.UsedMB), MiB(d.FreeMB)})
			total += d.TotalMB
			free += d.FreeMB
		}
		tw.AppendFooter(table.Row{"", "", "Total", MiB(total), "", MiB(free)})
		tw.SetColumnConfigs(rightAligned(4, 5, 6))
		tw.Render()
	}
	vendorFailures(w, inv.Reports, p)
}
