// Package apple reports Apple silicon GPUs, which share unified system memory.
package apple

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/everstacklabs/hfest/internal/accelerator"
)

func init() {
	accelerator.Register(&Apple{VirtualMemory: mem.VirtualMemoryWithContext})
}

// Apple names GPUs from system_profiler and sizes them from system memory.
type Apple struct {
	VirtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

func (a *Apple) Vendor() accelerator.Vendor { return accelerator.Apple }

func (a *Apple) Query(ctx context.Context, r accelerator.Runner) ([]accelerator.Device, error) {
	out, err := r.Output(ctx, "system_profiler", "SPDisplaysDataType")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, model := range accelerator.ChipsetModels(strings.Split(string(out), "\n")) {
		if strings.HasPrefix(model, "Apple") {
			names = append(names, model)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	vm, err := a.VirtualMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading unified memory: %w", err)
	}

	devices := make([]accelerator.Device, 0, len(names))
	for i, name := range names {
		devices = append(devices, accelerator.Device{
			Index:   i,
			Name:    name,
			TotalMB: accelerator.BytesToMiB(vm.Total),
			UsedMB:  accelerator.BytesToMiB(vm.Used),
			FreeMB:  accelerator.BytesToMiB(vm.Available),
		})
	}
	return devices, nil
}
