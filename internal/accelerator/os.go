package accelerator

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// OS is a host operating-system family.
type OS string

const (
	Windows     OS = "Windows"
	Darwin      OS = "Darwin"
	Linux       OS = "Linux"
	Unsupported OS = "Unsupported"
)

// ParseOS maps a system name to its family, case-insensitively.
func ParseOS(name string) OS {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "windows":
		return Windows
	case "darwin":
		return Darwin
	case "linux":
		return Linux
	}
	return Unsupported
}

// Host describes the machine being probed.
type Host struct {
	OS       OS     `json:"os" yaml:"os"`
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
	Version  string `json:"version,omitempty" yaml:"version,omitempty"`
	Kernel   string `json:"kernel,omitempty" yaml:"kernel,omitempty"`
}

// DetectHost reads the host system name and release. If gopsutil cannot
// describe the host, the family falls back to runtime.GOOS.
func DetectHost(ctx context.Context) Host {
	info, err := host.InfoWithContext(ctx)
	if err != nil || info == nil {
		slog.Debug("host info unavailable", "error", err)
		return Host{OS: ParseOS(runtime.GOOS)}
	}
	return Host{
		OS:       ParseOS(info.OS),
		Platform: info.Platform,
		Version:  info.PlatformVersion,
		Kernel:   info.KernelVersion,
	}
}
