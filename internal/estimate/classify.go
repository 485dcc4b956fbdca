package estimate

import (
	"fmt"
	"regexp"
	"strings"
)

// Format is a recognized model serialization format.
type Format string

const (
	FormatSafetensors Format = "safetensors"
	FormatPyTorch     Format = "pytorch"
	FormatONNX        Format = "onnx"
)

// Formats lists every format in priority order. Classification and
// comparisons both walk this order.
var Formats = []Format{FormatSafetensors, FormatPyTorch, FormatONNX}

var formatSuffixes = map[Format][]string{
	FormatSafetensors: {"safetensors"},
	FormatPyTorch:     {"bin", "pt", "pth"},
	FormatONNX:        {"onnx"},
}

// ParseFormat resolves a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := formatSuffixes[f]; !ok {
		return "", fmt.Errorf("unknown file type %q (want one of safetensors, pytorch, onnx)", s)
	}
	return f, nil
}

// Buckets maps each format to its files, in listing order.
type Buckets map[Format][]string

// Classify partitions filenames by their last extension. The first format
// whose suffix list matches wins; unmatched files are dropped.
func Classify(files []string) Buckets {
	b := make(Buckets, len(Formats))
	for _, f := range Formats {
		b[f] = []string{}
	}

	for _, name := range files {
		if f, ok := formatOf(name); ok {
			b[f] = append(b[f], name)
		}
	}
	return b
}

func formatOf(name string) (Format, bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", false
	}
	ext := name[i+1:]
	for _, f := range Formats {
		for _, s := range formatSuffixes[f] {
			if ext == s {
				return f, true
			}
		}
	}
	return "", false
}

// NonEmpty returns the formats holding at least one file, in priority order.
func (b Buckets) NonEmpty() []Format {
	var out []Format
	for _, f := range Formats {
		if len(b[f]) > 0 {
			out = append(out, f)
		}
	}
	return out
}

var repoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// ValidateRepoID checks that id has the owner/name form. Dot-only
// segments are rejected since ids double as local paths.
func ValidateRepoID(id string) error {
	if !repoIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q (expected owner/model-name)", ErrInvalidIdentifier, id)
	}
	for _, seg := range strings.Split(id, "/") {
		if strings.Trim(seg, ".") == "" {
			return fmt.Errorf("%w: %q (segments may not be . or ..)", ErrInvalidIdentifier, id)
		}
	}
	return nil
}
