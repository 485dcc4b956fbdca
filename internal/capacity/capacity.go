// Package capacity decides whether an estimated model fits on accelerators.
package capacity

import (
	"github.com/everstacklabs/hfest/internal/accelerator"
)

// DefaultMargin is the headroom added on top of the model size.
const DefaultMargin = 0.2

// Verdict is the fit decision for one device, or for the pooled set.
type Verdict struct {
	Device    accelerator.Device `json:"device" yaml:"device"`
	Required  float64            `json:"required_bytes" yaml:"required_bytes"`
	Available float64            `json:"available_bytes" yaml:"available_bytes"`
	Fits      bool               `json:"fits" yaml:"fits"`
}

// Shortfall returns how many bytes are missing, 0 when the model fits.
func (v Verdict) Shortfall() float64 {
	if v.Fits {
		return 0
	}
	return v.Required - v.Available
}

// Required returns sizeBytes with margin applied.
func Required(sizeBytes uint64, margin float64) float64 {
	return float64(sizeBytes) * (1 + margin)
}

// Compare checks sizeBytes against each device independently. A device
// fails when size × (1 + margin) exceeds its free memory.
func Compare(sizeBytes uint64, margin float64, devices []accelerator.Device) []Verdict {
	req := Required(sizeBytes, margin)
	out := make([]Verdict, 0, len(devices))
	for _, d := range devices {
		free := d.FreeBytes()
		out = append(out, Verdict{
			Device:    d,
			Required:  req,
			Available: free,
			Fits:      req <= free,
		})
	}
	return out
}

// CompareAggregate checks sizeBytes against the free memory of all devices
// pooled, as when a model is sharded across them.
func CompareAggregate(sizeBytes uint64, margin float64, devices []accelerator.Device) Verdict {
	pooled := accelerator.Device{Index: -1, Name: "all devices"}
	for _, d := range devices {
		pooled.TotalMB += d.TotalMB
		pooled.UsedMB += d.UsedMB
		pooled.FreeMB += d.FreeMB
	}
	v := Compare(sizeBytes, margin, []accelerator.Device{pooled})[0]
	if len(devices) == 0 {
		v.Fits = false
	}
	return v
}

// AnyFits reports whether at least one verdict passes.
func AnyFits(vs []Verdict) bool {
	for _, v := range vs {
		if v.Fits {
			return true
		}
	}
	return false
}
