package accelerator

// MiB is the unit every Device memory figure is expressed in.
const MiB = 1 << 20

// Device is one accelerator's memory state.
type Device struct {
	Index   int     `json:"index" yaml:"index"`
	Name    string  `json:"name" yaml:"name"`
	Vendor  Vendor  `json:"vendor" yaml:"vendor"`
	TotalMB float64 `json:"total_mib" yaml:"total_mib"`
	UsedMB  float64 `json:"used_mib" yaml:"used_mib"`
	FreeMB  float64 `json:"free_mib" yaml:"free_mib"`
}

// FreeBytes returns free memory in bytes.
func (d Device) FreeBytes() float64 { return d.FreeMB * MiB }

// BytesToMiB converts a byte count to MiB.
func BytesToMiB(b uint64) float64 { return float64(b) / MiB }
