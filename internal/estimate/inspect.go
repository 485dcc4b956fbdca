package estimate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// ConfigFile is the repository artifact that declares the numeric representation.
const ConfigFile = "config.json"

// Inspection is a classified repository, ready for estimation.
type Inspection struct {
	RepoID   string
	Metadata *Metadata
	Buckets  Buckets
	DTypes   *DTypeInfo
}

// Inspect validates repoID, fetches its metadata from src, and partitions the
// file listing by format. When exactly one format is present and the
// parameter count is known, config.json is read to recover the declared
// dtype; failing to read it is logged and otherwise ignored.
func Inspect(ctx context.Context, src Source, repoID string) (*Inspection, error) {
	if err := ValidateRepoID(repoID); err != nil {
		return nil, err
	}

	meta, err := src.Metadata(ctx, repoID)
	if err != nil {
		return nil, err
	}
	if len(meta.Files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRepository, repoID)
	}

	insp := &Inspection{
		RepoID:   repoID,
		Metadata: meta,
		Buckets:  Classify(meta.Files),
	}

	if len(insp.Buckets.NonEmpty()) == 1 && meta.ParamCount > 0 {
		info, err := readDTypes(ctx, src, repoID)
		if err != nil {
			slog.Warn("unable to infer data types from config.json", "repo", repoID, "error", err)
		} else {
			insp.DTypes = info
		}
	}

	return insp, nil
}

type modelConfig struct {
	TorchDType         string              `json:"torch_dtype"`
	DType              string              `json:"dtype"`
	QuantizationConfig *quantizationConfig `json:"quantization_config"`
}

type quantizationConfig struct {
	QuantMethod string `json:"quant_method"`
}

func readDTypes(ctx context.Context, src Source, repoID string) (*DTypeInfo, error) {
	data, err := src.ReadFile(ctx, repoID, ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", ConfigFile, err)
	}

	var cfg modelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFile, err)
	}

	info := &DTypeInfo{Primary: cfg.TorchDType}
	if info.Primary == "" {
		info.Primary = cfg.DType
	}
	if q := cfg.QuantizationConfig; q != nil {
		method := q.QuantMethod
		if method == "" {
			method = "unknown"
		}
		info.Additional = append(info.Additional, method)
	}

	if info.Primary == "" && len(info.Additional) == 0 {
		return nil, fmt.Errorf("%s declares no data type", ConfigFile)
	}
	return info, nil
}
