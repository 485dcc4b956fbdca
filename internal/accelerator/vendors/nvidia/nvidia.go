// Package nvidia queries NVIDIA GPU memory through nvidia-smi.
package nvidia

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/everstacklabs/hfest/internal/accelerator"
)

func init() {
	accelerator.Register(&NVIDIA{})
}

// NVIDIA reports one Device per nvidia-smi row. nvidia-smi reports MiB.
type NVIDIA struct{}

func (n *NVIDIA) Vendor() accelerator.Vendor { return accelerator.NVIDIA }

var queryArgs = []string{
	"--query-gpu=index,name,memory.total,memory.used,memory.free",
	"--format=csv,noheader,nounits",
}

func (n *NVIDIA) Query(ctx context.Context, r accelerator.Runner) ([]accelerator.Device, error) {
	out, err := r.Output(ctx, "nvidia-smi", queryArgs...)
	if err != nil {
		return nil, err
	}
	return parse(out)
}

func parse(out []byte) ([]accelerator.Device, error) {
	rd := csv.NewReader(bytes.NewReader(out))
	rd.TrimLeadingSpace = true
	rd.FieldsPerRecord = -1

	var devices []accelerator.Device
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing nvidia-smi output: %w", err)
		}
		if len(rec) < 5 {
			continue
		}

		idx, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("parsing nvidia-smi index %q: %w", rec[0], err)
		}
		d := accelerator.Device{Index: idx, Name: strings.TrimSpace(rec[1])}

		// Unified-memory parts such as GB10 report [N/A] for memory.
		total, okT := mib(rec[2])
		used, okU := mib(rec[3])
		free, okF := mib(rec[4])
		if !okT || !okU || !okF {
			slog.Debug("nvidia-smi reported no memory figures", "device", d.Name)
		} else {
			d.TotalMB, d.UsedMB, d.FreeMB = total, used, free
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func mib(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}
