package estimate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultSampleSize caps how many files per format are queried individually.
const DefaultSampleSize = 10

// Method records how a bucket's size was derived.
type Method string

const (
	MethodParams  Method = "params"
	MethodSampled Method = "sampled"
	MethodNone    Method = "none"
)

// BucketEstimate is the estimated size of one format's files.
type BucketEstimate struct {
	Format  Format `json:"format" yaml:"format"`
	Files   int    `json:"files" yaml:"files"`
	Sampled int    `json:"sampled" yaml:"sampled"`
	Known   int    `json:"known" yaml:"known"`
	Bytes   uint64 `json:"bytes" yaml:"bytes"`
	Method  Method `json:"method" yaml:"method"`
	DType   *DType `json:"dtype,omitempty" yaml:"dtype,omitempty"`
}

// Result is the size estimate for a repository.
type Result struct {
	RepoID    string           `json:"repo_id" yaml:"repo_id"`
	Metadata  *Metadata        `json:"metadata" yaml:"metadata"`
	DTypes    *DTypeInfo       `json:"dtypes,omitempty" yaml:"dtypes,omitempty"`
	Estimates []BucketEstimate `json:"estimates" yaml:"estimates"`
}

// Bucket returns the estimate for format f.
func (r *Result) Bucket(f Format) BucketEstimate {
	for _, be := range r.Estimates {
		if be.Format == f {
			return be
		}
	}
	return BucketEstimate{Format: f, Method: MethodNone}
}

// Sizes returns the estimated byte count per format, 0 where undeterminable.
func (r *Result) Sizes() map[Format]uint64 {
	out := make(map[Format]uint64, len(Formats))
	for _, f := range Formats {
		out[f] = r.Bucket(f).Bytes
	}
	return out
}

// Primary returns the highest-priority format with a non-zero estimate.
func (r *Result) Primary() (BucketEstimate, bool) {
	for _, f := range Formats {
		if be := r.Bucket(f); be.Bytes > 0 {
			return be, true
		}
	}
	return BucketEstimate{}, false
}

// Estimator turns an Inspection into a Result.
type Estimator struct {
	Source     Source
	SampleSize int
	// Progress, if set, is called after each sampled file query.
	Progress func(done, total int)
}

// Run inspects repoID and estimates its size.
func (e *Estimator) Run(ctx context.Context, repoID string) (*Result, error) {
	insp, err := Inspect(ctx, e.Source, repoID)
	if err != nil {
		return nil, err
	}
	return e.Estimate(ctx, insp)
}

// Estimate derives a per-format size. With a single format, a known
// parameter count, and a declared unquantized dtype, the size is
// params × width. Otherwise each format's first SampleSize files are
// queried and the mean known size is scaled by the format's file count.
// A per-file failure counts as unknown; ErrSourceUnavailable aborts.
func (e *Estimator) Estimate(ctx context.Context, insp *Inspection) (*Result, error) {
	res := &Result{
		RepoID:   insp.RepoID,
		Metadata: insp.Metadata,
		DTypes:   insp.DTypes,
	}

	if dt, ok := declaredDType(insp); ok {
		f := insp.Buckets.NonEmpty()[0]
		for _, g := range Formats {
			be := BucketEstimate{Format: g, Files: len(insp.Buckets[g]), Method: MethodNone}
			if g == f {
				d := dt
				be.Bytes = dt.BytesFor(insp.Metadata.ParamCount)
				be.Method = MethodParams
				be.DType = &d
			}
			res.Estimates = append(res.Estimates, be)
		}
		slog.Debug("estimated from parameter count",
			"repo", insp.RepoID, "format", f, "dtype", dt.Name, "params", insp.Metadata.ParamCount)
		return res, nil
	}

	size := e.SampleSize
	if size <= 0 {
		size = DefaultSampleSize
	}

	total := 0
	for _, f := range Formats {
		total += min(len(insp.Buckets[f]), size)
	}

	done := 0
	for _, f := range Formats {
		files := insp.Buckets[f]
		be := BucketEstimate{Format: f, Files: len(files), Method: MethodNone}
		sample := files[:min(len(files), size)]

		var sum uint64
		for _, name := range sample {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sz, err := e.Source.FileSize(ctx, insp.RepoID, name)
			if errors.Is(err, ErrSourceUnavailable) {
				return nil, fmt.Errorf("sizing %s: %w", name, err)
			}
			if err != nil {
				slog.Warn("file size unavailable", "repo", insp.RepoID, "file", name, "error", err)
				sz = UnknownSize
			}
			if sz.Known {
				sum += sz.Bytes
				be.Known++
			}
			done++
			if e.Progress != nil {
				e.Progress(done, total)
			}
		}

		be.Sampled = len(sample)
		if be.Known > 0 {
			be.Bytes = sum * uint64(len(files)) / uint64(be.Known)
			be.Method = MethodSampled
		}
		res.Estimates = append(res.Estimates, be)
	}

	return res, nil
}

func declaredDType(insp *Inspection) (DType, bool) {
	if insp.DTypes == nil || len(insp.DTypes.Additional) > 0 {
		return DType{}, false
	}
	if len(insp.Buckets.NonEmpty()) != 1 || insp.Metadata.ParamCount == 0 {
		return DType{}, false
	}
	return LookupDType(insp.DTypes.Primary)
}
