package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/everstacklabs/hfest/internal/accelerator"
	"github.com/everstacklabs/hfest/internal/capacity"
	"github.com/everstacklabs/hfest/internal/estimate"
)

func sampleResult() *estimate.Result {
	fp16 := estimate.Float16
	return &estimate.Result{
		RepoID:   "meta-llama/Llama-2-7b-hf",
		Metadata: &estimate.Metadata{UsedStorage: 13.5 * gib, ParamCount: 7_000_000_000, Files: []string{"a.safetensors"}},
		DTypes:   &estimate.DTypeInfo{Primary: "float16", Additional: []string{"gptq"}},
		Estimates: []estimate.BucketEstimate{
			{Format: estimate.FormatSafetensors, Files: 2, Bytes: 14_000_000_000, Method: estimate.MethodParams, DType: &fp16},
			{Format: estimate.FormatPyTorch, Files: 3, Sampled: 3, Known: 0, Method: estimate.MethodNone},
			{Format: estimate.FormatONNX, Method: estimate.MethodNone},
		},
	}
}

func TestCount(t *testing.T) {
	tests := map[uint64]string{0: "0", 999: "999", 1000: "1,000", 7_000_000_000: "7,000,000,000"}
	for in, want := range tests {
		if got := Count(in); got != want {
			t.Errorf("Count(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestGB(t *testing.T) {
	if got := GB(14_000_000_000); got != "13.04 GB" {
		t.Errorf("GB = %q", got)
	}
	if got := GB(0); got != "0.00 GB" {
		t.Errorf("GB(0) = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "text": FormatText, "JSON": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestEstimateText(t *testing.T) {
	var buf bytes.Buffer
	Estimate(&buf, sampleResult(), Palette{})
	out := buf.String()

	for _, want := range []string{
		"Model: meta-llama/Llama-2-7b-hf",
		"Repository Size: 13.50 GB",
		"Model Parameter Count: 7,000,000,000",
		"  • Main data type: float16",
		"  • Additional data type 1: gptq",
		"13.04 GB",
		"parameters × float16",
		"0/3 known",
		"sizes unknown",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("plain palette emitted escape codes")
	}
}

func TestPalette(t *testing.T) {
	if got := (Palette{}).OK("fits"); got != "fits" {
		t.Errorf("disabled palette = %q", got)
	}
	if got := (Palette{Enabled: true}).Fail("no"); !strings.Contains(got, "\x1b[") || !strings.Contains(got, "no") {
		t.Errorf("enabled palette = %q", got)
	}
}

func TestEncode(t *testing.T) {
	res := sampleResult()

	var jb bytes.Buffer
	if err := Encode(&jb, FormatJSON, res); err != nil {
		t.Fatalf("Encode json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(jb.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["repo_id"] != res.RepoID {
		t.Errorf("repo_id = %v", decoded["repo_id"])
	}

	var yb bytes.Buffer
	if err := Encode(&yb, FormatYAML, res); err != nil {
		t.Fatalf("Encode yaml: %v", err)
	}
	var ydecoded map[string]any
	if err := yaml.Unmarshal(yb.Bytes(), &ydecoded); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if ydecoded["repo_id"] != res.RepoID {
		t.Errorf("repo_id = %v", ydecoded["repo_id"])
	}

	if err := Encode(&jb, FormatText, res); err == nil {
		t.Error("expected error encoding text")
	}
}

func TestResourceText(t *testing.T) {
	devices := []accelerator.Device{
		{Index: 0, Name: "RTX 4090", Vendor: accelerator.NVIDIA, TotalMB: 24564, UsedMB: 300, FreeMB: 24264},
		{Index: 0, Name: "Iris Xe", Vendor: accelerator.Intel, TotalMB: 2048, FreeMB: 2048},
	}
	r := &Resource{
		RepoID:    "a/b",
		Format:    estimate.FormatSafetensors,
		Precision: "float16",
		SizeBytes: 14_000_000_000,
		Margin:    capacity.DefaultMargin,
		Mode:      "single",
		Host:      accelerator.Host{OS: accelerator.Linux, Platform: "ubuntu", Version: "24.04"},
		Verdicts:  capacity.Compare(14_000_000_000, capacity.DefaultMargin, devices),
		Reports: []accelerator.VendorReport{
			{Vendor: accelerator.AMD, Err: &accelerator.ToolError{Tool: "rocm-smi", Err: errors.New("not found")}},
		},
	}

	var buf bytes.Buffer
	ResourceText(&buf, r, Palette{})
	out := buf.String()

	for _, want := range []string{
		"Estimated Size: 13.04 GB",
		"Required With 20% Margin: 15.65 GB",
		"Host: Linux (ubuntu 24.04)",
		"RTX 4090",
		"fits",
		"short ",
		"unavailable: AMD: rocm-smi",
		"The model fits.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestResourceFits(t *testing.T) {
	small := []accelerator.Device{{FreeMB: 8 * 1024}, {FreeMB: 8 * 1024}}
	r := &Resource{Verdicts: capacity.Compare(10*gib, 0.2, small)}
	if r.Fits() {
		t.Error("no single 8GiB device holds 12GiB")
	}
	agg := capacity.CompareAggregate(10*gib, 0.2, small)
	r.Aggregate = &agg
	if !r.Fits() {
		t.Error("pooled 16GiB should hold 12GiB")
	}
}

func TestDevicesText(t *testing.T) {
	inv := &accelerator.Inventory{
		Host:    accelerator.Host{OS: accelerator.Darwin},
		Vendors: []accelerator.Vendor{accelerator.Apple},
		Devices: []accelerator.Device{{Name: "Apple M2 Max", Vendor: accelerator.Apple, TotalMB: 32768, UsedMB: 12288, FreeMB: 20480}},
	}

	var buf bytes.Buffer
	Devices(&buf, inv, Palette{})
	out := buf.String()
	for _, want := range []string{"Host: Darwin", "GPU Vendors: APPLE", "Apple M2 Max", "20480 MiB"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	Devices(&buf, &accelerator.Inventory{Host: accelerator.Host{OS: accelerator.Linux}}, Palette{})
	if !strings.Contains(buf.String(), "none detected") {
		t.Errorf("empty inventory output:\n%s", buf.String())
	}
}
