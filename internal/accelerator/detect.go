package accelerator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// displayClass selects lspci lines for display controllers.
var displayClass = regexp.MustCompile(`VGA|Display|3D|Graphics`)

const chipsetModelPrefix = "Chipset Model:"

// DetectVendors lists the GPU vendors present on a host of family osys
// using the platform's inventory utility. On failure the set is empty and
// the error describes why.
func DetectVendors(ctx context.Context, r Runner, osys OS) (VendorSet, error) {
	switch osys {
	case Windows:
		out, err := r.Output(ctx, "wmic", "path", "win32_VideoController", "get", "Caption,AdapterRAM,DriverVersion")
		if err != nil {
			return VendorSet{}, err
		}
		lines := splitLines(out)
		if len(lines) > 0 {
			lines = lines[1:]
		}
		return Classify(lines), nil

	case Darwin:
		out, err := r.Output(ctx, "system_profiler", "SPDisplaysDataType")
		if err != nil {
			return VendorSet{}, err
		}
		return classifyDisplays(splitLines(out)), nil

	case Linux:
		out, err := r.Output(ctx, "lspci")
		if err != nil {
			return VendorSet{}, err
		}
		var lines []string
		for _, l := range splitLines(out) {
			if displayClass.MatchString(l) {
				lines = append(lines, l)
			}
		}
		return Classify(lines), nil
	}
	return VendorSet{}, fmt.Errorf("unsupported operating system %q", osys)
}

// classifyDisplays reads system_profiler output. An Apple chipset is
// unified-memory silicon; other chipsets follow the substring rules.
func classifyDisplays(lines []string) VendorSet {
	s := VendorSet{}
	for _, model := range ChipsetModels(lines) {
		if strings.HasPrefix(model, "Apple") {
			s.Add(Apple)
			continue
		}
		s.ClassifyLine(model)
	}
	return s
}

// ChipsetModels extracts the "Chipset Model:" values from system_profiler output.
func ChipsetModels(lines []string) []string {
	var out []string
	for _, l := range lines {
		if v, ok := strings.CutPrefix(strings.TrimSpace(l), chipsetModelPrefix); ok {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

func splitLines(out []byte) []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(string(out), "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
