// Package validate checks hfest settings before they are persisted.
package validate

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // Blocks the write
	SeverityWarning                 // Reported but doesn't block
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	Key      string
	Value    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s=%q: %s", sev, i.Key, i.Value, i.Message)
}

// Result holds all validation issues.
type Result struct {
	Issues []Issue
}

// HasErrors returns true if there are any blocking errors.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (r *Result) Errors() []Issue {
	var errs []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			errs = append(errs, i)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	var warns []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			warns = append(warns, i)
		}
	}
	return warns
}

func (r *Result) add(sev Severity, key, value, msg string) {
	r.Issues = append(r.Issues, Issue{sev, key, value, msg})
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Settings checks a full set of stored settings. Keys outside the checks
// below are accepted as-is.
func Settings(values map[string]string) *Result {
	r := &Result{}

	if v, ok := values["api_key"]; ok {
		masked := MaskSecret(v)
		switch {
		case v == "":
			r.add(SeverityWarning, "api_key", v, "no API key; estimate commands need HF_TOKEN or this key")
		case strings.ContainsAny(v, " \t\n"):
			r.add(SeverityError, "api_key", masked, "API key contains whitespace")
		case !strings.HasPrefix(v, "hf_"):
			r.add(SeverityWarning, "api_key", masked, `Hugging Face tokens usually start with "hf_"`)
		}
	}

	if v, ok := values["endpoint"]; ok {
		u, err := url.Parse(v)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			r.add(SeverityError, "endpoint", v, "must be an http(s) URL")
		}
	}

	if v, ok := values["timeout"]; ok {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			r.add(SeverityError, "timeout", v, `must be a positive duration such as "60s"`)
		}
	}

	if v, ok := values["cache_ttl"]; ok {
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			r.add(SeverityError, "cache_ttl", v, `must be a duration such as "1h"`)
		} else if d == 0 {
			r.add(SeverityWarning, "cache_ttl", v, "every cached response will be revalidated")
		}
	}

	if v, ok := values["rate_limit"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err != nil || f < 0 {
			r.add(SeverityError, "rate_limit", v, "must be a non-negative number of requests per second")
		} else if f == 0 {
			r.add(SeverityWarning, "rate_limit", v, "rate limiting disabled")
		}
	}

	if v, ok := values["margin"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err != nil || f < 0 {
			r.add(SeverityError, "margin", v, "must be a non-negative fraction such as 0.2")
		} else if f > 1 {
			r.add(SeverityWarning, "margin", v, fmt.Sprintf("reserves %.0f%% on top of the model size", f*100))
		}
	}

	if v, ok := values["log_level"]; ok && !logLevels[strings.ToLower(v)] {
		r.add(SeverityError, "log_level", v, "must be one of debug, info, warn, error")
	}

	if v, ok := values["cache_dir"]; ok && v == "" {
		r.add(SeverityWarning, "cache_dir", v, "empty; the default cache directory is used")
	}

	if v := values["default_model_path"]; v != "" && !strings.HasPrefix(v, "~") {
		if fi, err := os.Stat(v); err != nil || !fi.IsDir() {
			r.add(SeverityWarning, "default_model_path", v, "directory does not exist")
		}
	}

	return r
}

// MaskSecret keeps a short prefix of s so a key stays recognizable.
func MaskSecret(s string) string {
	const keep = 6
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	return s[:keep] + strings.Repeat("*", len(s)-keep)
}

// FormatResult formats validation results for display.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "Validation passed: no issues found."
	}

	var b strings.Builder
	errors := r.Errors()
	warnings := r.Warnings()

	if len(errors) > 0 {
		b.WriteString(fmt.Sprintf("Errors (%d):\n", len(errors)))
		for _, e := range errors {
			b.WriteString(fmt.Sprintf("  %s\n", e))
		}
	}

	if len(warnings) > 0 {
		b.WriteString(fmt.Sprintf("Warnings (%d):\n", len(warnings)))
		for _, w := range warnings {
			b.WriteString(fmt.Sprintf("  %s\n", w))
		}
	}

	return b.String()
}
