package capacity

import (
	"testing"

	"github.com/everstacklabs/hfest/internal/accelerator"
)

const gib = 1 << 30

func deviceWithFree(freeGiB float64) accelerator.Device {
	return accelerator.Device{Name: "gpu", TotalMB: freeGiB * 1024, FreeMB: freeGiB * 1024}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		size    uint64
		margin  float64
		freeGiB float64
		fits    bool
	}{
		{"10GiB with margin in 11GiB", 10 * gib, DefaultMargin, 11, false},
		{"10GiB with margin in 13GiB", 10 * gib, DefaultMargin, 13, true},
		{"exact fit", 10 * gib, DefaultMargin, 12, true},
		{"zero margin", 10 * gib, 0, 10, true},
		{"empty model", 0, DefaultMargin, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := Compare(tt.size, tt.margin, []accelerator.Device{deviceWithFree(tt.freeGiB)})
			if len(vs) != 1 {
				t.Fatalf("got %d verdicts", len(vs))
			}
			if vs[0].Fits != tt.fits {
				t.Errorf("Fits = %v, want %v (required %.0f, available %.0f)", vs[0].Fits, tt.fits, vs[0].Required, vs[0].Available)
			}
		})
	}
}

func TestCompareEachDeviceIndependently(t *testing.T) {
	devices := []accelerator.Device{deviceWithFree(8), deviceWithFree(24), deviceWithFree(11)}
	vs := Compare(10*gib, DefaultMargin, devices)

	want := []bool{false, true, false}
	for i, v := range vs {
		if v.Fits != want[i] {
			t.Errorf("device %d fits = %v, want %v", i, v.Fits, want[i])
		}
	}
	if !AnyFits(vs) {
		t.Error("AnyFits = false")
	}
	if vs[0].Shortfall() != 4*gib || vs[1].Shortfall() != 0 {
		t.Errorf("shortfalls = %v, %v", vs[0].Shortfall(), vs[1].Shortfall())
	}
}

func TestCompareNoDevices(t *testing.T) {
	if vs := Compare(gib, DefaultMargin, nil); len(vs) != 0 || AnyFits(vs) {
		t.Errorf("verdicts = %+v", vs)
	}
}

func TestCompareAggregate(t *testing.T) {
	devices := []accelerator.Device{deviceWithFree(8), deviceWithFree(8)}

	if v := CompareAggregate(10*gib, DefaultMargin, devices); !v.Fits {
		t.Errorf("pooled 16GiB should hold 12GiB: %+v", v)
	}
	if v := CompareAggregate(14*gib, DefaultMargin, devices); v.Fits {
		t.Errorf("pooled 16GiB should not hold 16.8GiB: %+v", v)
	}
	if v := CompareAggregate(0, DefaultMargin, nil); v.Fits {
		t.Error("no devices should never fit")
	}
}
