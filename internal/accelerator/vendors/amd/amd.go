// Package amd queries AMD GPU memory through rocm-smi.
package amd

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/everstacklabs/hfest/internal/accelerator"
)

func init() {
	accelerator.Register(&AMD{})
}

// AMD reports VRAM from rocm-smi, which prints bytes.
type AMD struct{}

func (a *AMD) Vendor() accelerator.Vendor { return accelerator.AMD }

func (a *AMD) Query(ctx context.Context, r accelerator.Runner) ([]accelerator.Device, error) {
	out, err := r.Output(ctx, "rocm-smi", "--showmeminfo", "vram", "--csv")
	if err != nil {
		return nil, err
	}
	devices, err := parseMemInfo(out)
	if err != nil {
		return nil, err
	}

	names, err := r.Output(ctx, "rocm-smi", "--showproductname", "--csv")
	if err != nil {
		slog.Debug("rocm-smi product names unavailable", "error", err)
		return devices, nil
	}
	byCard := parseProductNames(names)
	for i := range devices {
		if n, ok := byCard[devices[i].Index]; ok {
			devices[i].Name = n
		}
	}
	return devices, nil
}

func readCSV(out []byte) ([][]string, error) {
	rd := csv.NewReader(bytes.NewReader(out))
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true
	rd.LazyQuotes = true
	return rd.ReadAll()
}

// column returns the index of the first header containing any of subs.
func column(header []string, subs ...string) int {
	for i, h := range header {
		for _, s := range subs {
			if strings.Contains(strings.ToLower(h), strings.ToLower(s)) {
				return i
			}
		}
	}
	return -1
}

func parseMemInfo(out []byte) ([]accelerator.Device, error) {
	rows, err := readCSV(out)
	if err != nil {
		return nil, fmt.Errorf("parsing rocm-smi meminfo: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("parsing rocm-smi meminfo: no devices listed")
	}

	header := rows[0]
	totalCol := column(header, "Total Memory")
	usedCol := column(header, "Used Memory")
	if totalCol < 0 || usedCol < 0 {
		return nil, fmt.Errorf("parsing rocm-smi meminfo: unexpected header %q", strings.Join(header, ","))
	}

	var devices []accelerator.Device
	for _, row := range rows[1:] {
		if len(row) <= max(totalCol, usedCol) {
			continue
		}
		total, err := strconv.ParseUint(strings.TrimSpace(row[totalCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing rocm-smi total %q: %w", row[totalCol], err)
		}
		used, err := strconv.ParseUint(strings.TrimSpace(row[usedCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing rocm-smi used %q: %w", row[usedCol], err)
		}
		var free uint64
		if total > used {
			free = total - used
		}

		devices = append(devices, accelerator.Device{
			Index:   cardIndex(row[0]),
			Name:    "AMD GPU",
			TotalMB: accelerator.BytesToMiB(total),
			UsedMB:  accelerator.BytesToMiB(used),
			FreeMB:  accelerator.BytesToMiB(free),
		})
	}
	return devices, nil
}

func parseProductNames(out []byte) map[int]string {
	names := make(map[int]string)
	rows, err := readCSV(out)
	if err != nil || len(rows) < 2 {
		return names
	}
	nameCol := column(rows[0], "Card series", "Card model")
	if nameCol < 0 {
		return names
	}
	for _, row := range rows[1:] {
		if len(row) > nameCol && strings.TrimSpace(row[nameCol]) != "" {
			names[cardIndex(row[0])] = strings.TrimSpace(row[nameCol])
		}
	}
	return names
}

// cardIndex reads the index from "card0" or "GPU[0]".
func cardIndex(s string) int {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "GPU["), "]")
	s = strings.TrimPrefix(s, "card")
	n, _ := strconv.Atoi(s)
	return n
}
