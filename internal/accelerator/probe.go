// Package accelerator inventories host GPUs: OS family, vendor detection,
// and per-vendor memory queries through registered Queriers.
package accelerator

import (
	"context"
	"log/slog"
)

// VendorReport is the outcome of one vendor's memory query.
type VendorReport struct {
	Vendor  Vendor `json:"vendor" yaml:"vendor"`
	Devices int    `json:"devices" yaml:"devices"`
	Err     error  `json:"-" yaml:"-"`
	Message string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Inventory is everything a probe found.
type Inventory struct {
	Host      Host           `json:"host" yaml:"host"`
	Vendors   []Vendor       `json:"vendors" yaml:"vendors"`
	Reports   []VendorReport `json:"reports" yaml:"reports"`
	Devices   []Device       `json:"devices" yaml:"devices"`
	DetectErr error          `json:"-" yaml:"-"`
}

// Prober runs the host inventory.
type Prober struct {
	Runner Runner
	// Host overrides host detection; DetectHost when nil.
	Host func(ctx context.Context) Host
}

// Probe detects the host OS and GPU vendors, then queries each vendor's
// memory. Failures are recorded per vendor and never abort the probe.
func (p *Prober) Probe(ctx context.Context) *Inventory {
	detectHost := p.Host
	if detectHost == nil {
		detectHost = DetectHost
	}
	runner := p.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	inv := &Inventory{Host: detectHost(ctx)}
	if inv.Host.OS == Unsupported {
		slog.Warn("unsupported operating system, no accelerators probed", "platform", inv.Host.Platform)
		return inv
	}

	vendors, err := DetectVendors(ctx, runner, inv.Host.OS)
	if err != nil {
		slog.Warn("GPU vendor detection failed", "os", inv.Host.OS, "error", err)
		inv.DetectErr = err
	}
	inv.Vendors = vendors.Sorted()

	for _, v := range inv.Vendors {
		report := VendorReport{Vendor: v}
		devices, err := queryVendor(ctx, runner, v)
		if err != nil {
			slog.Warn("GPU memory query failed", "vendor", v, "error", err)
			report.Err = err
			report.Message = err.Error()
		}
		report.Devices = len(devices)
		inv.Reports = append(inv.Reports, report)
		inv.Devices = append(inv.Devices, devices...)
	}

	slog.Debug("accelerator probe complete", "os", inv.Host.OS, "vendors", len(inv.Vendors), "devices", len(inv.Devices))
	return inv
}

func queryVendor(ctx context.Context, r Runner, v Vendor) ([]Device, error) {
	q, err := Get(v)
	if err != nil {
		return nil, err
	}
	devices, err := q.Query(ctx, r)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		devices[i].Vendor = v
	}
	return devices, nil
}
