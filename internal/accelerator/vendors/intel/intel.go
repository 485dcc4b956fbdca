// Package intel queries Intel GPU memory through xpu-smi.
package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/everstacklabs/hfest/internal/accelerator"
)

func init() {
	accelerator.Register(&Intel{})
}

// Intel reports devices from xpu-smi discovery, with used memory from
// per-device stats when available.
type Intel struct{}

func (i *Intel) Vendor() accelerator.Vendor { return accelerator.Intel }

// number accepts a JSON number or a numeric string.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = number(f)
	return nil
}

type discovery struct {
	DeviceList []struct {
		DeviceID   int    `json:"device_id"`
		DeviceName string `json:"device_name"`
		MemoryByte number `json:"memory_physical_size_byte"`
	} `json:"device_list"`
}

type stats struct {
	MemoryUsed  *number `json:"memory_used"`
	DeviceLevel []struct {
		MetricsType string `json:"metrics_type"`
		Value       number `json:"value"`
	} `json:"device_level"`
}

// usedBytes returns used memory in bytes. A top-level memory_used is in
// bytes; the XPUM_STATS_MEMORY_USED metric is in MiB.
func (s stats) usedBytes() (float64, bool) {
	if s.MemoryUsed != nil {
		return float64(*s.MemoryUsed), true
	}
	for _, m := range s.DeviceLevel {
		if m.MetricsType == "XPUM_STATS_MEMORY_USED" {
			return float64(m.Value) * accelerator.MiB, true
		}
	}
	return 0, false
}

func (i *Intel) Query(ctx context.Context, r accelerator.Runner) ([]accelerator.Device, error) {
	out, err := r.Output(ctx, "xpu-smi", "discovery", "--json")
	if err != nil {
		return nil, err
	}
	var disc discovery
	if err := json.Unmarshal(out, &disc); err != nil {
		return nil, fmt.Errorf("parsing xpu-smi discovery: %w", err)
	}

	var devices []accelerator.Device
	for _, dev := range disc.DeviceList {
		total := float64(dev.MemoryByte)
		var used float64

		statsOut, err := r.Output(ctx, "xpu-smi", "stats", "-d", strconv.Itoa(dev.DeviceID), "--json")
		if err != nil {
			slog.Debug("xpu-smi stats failed", "device", dev.DeviceID, "error", err)
		} else {
			var st stats
			if err := json.Unmarshal(statsOut, &st); err != nil {
				slog.Debug("parsing xpu-smi stats", "device", dev.DeviceID, "error", err)
			} else if u, ok := st.usedBytes(); ok {
				used = u
			}
		}

		free := total - used
		if free < 0 {
			free = 0
		}
		devices = append(devices, accelerator.Device{
			Index:   dev.DeviceID,
			Name:    dev.DeviceName,
			TotalMB: total / accelerator.MiB,
			UsedMB:  used / accelerator.MiB,
			FreeMB:  free / accelerator.MiB,
		})
	}
	return devices, nil
}
