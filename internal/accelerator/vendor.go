package accelerator

import (
	"regexp"
	"sort"
	"strings"
)

// Vendor is a GPU vendor tag.
type Vendor string

const (
	NVIDIA Vendor = "NVIDIA"
	AMD    Vendor = "AMD"
	Intel  Vendor = "INTEL"
	Apple  Vendor = "APPLE"
)

// VendorSet is an unordered collection of vendor tags.
type VendorSet map[Vendor]struct{}

// Add inserts v.
func (s VendorSet) Add(v Vendor) { s[v] = struct{}{} }

// Has reports whether v is present.
func (s VendorSet) Has(v Vendor) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the tags in lexical order.
func (s VendorSet) Sorted() []Vendor {
	out := make([]Vendor, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ATI only counts as a whole word; as a bare substring it matches "Corporation".
var atiWord = regexp.MustCompile(`\bATI\b`)

// ClassifyLine adds to s every vendor named in a device description.
func (s VendorSet) ClassifyLine(line string) {
	upper := strings.ToUpper(line)
	if strings.Contains(upper, "NVIDIA") {
		s.Add(NVIDIA)
	}
	if strings.Contains(upper, "AMD") || strings.Contains(upper, "RADEON") || atiWord.MatchString(upper) {
		s.Add(AMD)
	}
	if strings.Contains(upper, "INTEL") {
		s.Add(Intel)
	}
}

// Classify returns the vendors named across lines.
func Classify(lines []string) VendorSet {
	s := VendorSet{}
	for _, l := range lines {
		s.ClassifyLine(l)
	}
	return s
}
