package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/everstacklabs/hfest/internal/accelerator"
	"github.com/everstacklabs/hfest/internal/capacity"
	"github.com/everstacklabs/hfest/internal/estimate"
	"github.com/everstacklabs/hfest/internal/render"
)

const (
	gpuSingle      = "single"
	gpuDistributed = "distributed"
	auto           = "auto"
)

// prober is replaced in tests.
var prober = &accelerator.Prober{}

func estimateResourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate-resource <model_id>",
		Short: "Check whether a model fits in local GPU memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			filetype, _ := cmd.Flags().GetString("filetype")
			gpuConfig, _ := cmd.Flags().GetString("gpu_config")
			precision, _ := cmd.Flags().GetString("precision")

			gpuConfig = strings.ToLower(gpuConfig)
			if gpuConfig != gpuSingle && gpuConfig != gpuDistributed {
				return fmt.Errorf("unknown gpu_config %q (want single or distributed)", gpuConfig)
			}
			var target *estimate.DType
			if !strings.EqualFold(precision, auto) {
				d, err := estimate.ParseDType(precision)
				if err != nil {
					return err
				}
				target = &d
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			margin := cfg.Margin
			if cmd.Flags().Changed("margin") {
				margin, _ = cmd.Flags().GetFloat64("margin")
			}
			if margin < 0 {
				return fmt.Errorf("margin must not be negative, got %g", margin)
			}

			src, err := newSource(cmd, cfg)
			if err != nil {
				return err
			}
			res, err := newEstimator(src, cmd.ErrOrStderr()).Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rep, err := sizeFor(res, filetype, target)
			if err != nil {
				return err
			}
			rep.Margin = margin
			rep.Mode = gpuConfig

			inv := prober.Probe(cmd.Context())
			rep.Host = inv.Host
			rep.Reports = inv.Reports
			rep.Verdicts = capacity.Compare(rep.SizeBytes, margin, inv.Devices)
			if gpuConfig == gpuDistributed {
				agg := capacity.CompareAggregate(rep.SizeBytes, margin, inv.Devices)
				rep.Aggregate = &agg
			}
			slog.Debug("capacity checked", "repo", rep.RepoID, "size", rep.SizeBytes, "devices", len(inv.Devices), "fits", rep.Fits())

			if out != render.FormatText {
				return render.Encode(cmd.OutOrStdout(), out, rep)
			}
			render.ResourceText(cmd.OutOrStdout(), rep, palette(cmd.OutOrStdout()))
			return nil
		},
	}

	cmd.Flags().String("filetype", auto, "file format to size: auto, safetensors, pytorch, or onnx")
	cmd.Flags().String("gpu_config", gpuSingle, "single: the model must fit on one device; distributed: across all devices")
	cmd.Flags().String("precision", auto, "target precision: auto, float32, bfloat16, float16, int8, or int4")
	cmd.Flags().Float64("margin", capacity.DefaultMargin, "headroom over the model size (default from config)")
	addSourceFlags(cmd)
	addOutputFlag(cmd)
	return cmd
}

// sizeFor selects the bucket for filetype and projects it to target. A
// sampled bucket is kept at its on-disk size and the refusal becomes a note.
func sizeFor(res *estimate.Result, filetype string, target *estimate.DType) (*render.Resource, error) {
	var be estimate.BucketEstimate
	if strings.EqualFold(filetype, auto) {
		var ok bool
		if be, ok = res.Primary(); !ok {
			return nil, fmt.Errorf("no model files with a known size in %s", res.RepoID)
		}
	} else {
		f, err := estimate.ParseFormat(filetype)
		if err != nil {
			return nil, err
		}
		be = res.Bucket(f)
		if be.Bytes == 0 {
			return nil, fmt.Errorf("no %s files with a known size in %s", f, res.RepoID)
		}
	}

	rep := &render.Resource{
		RepoID:    res.RepoID,
		Format:    be.Format,
		SizeBytes: be.Bytes,
		Precision: "as stored",
	}
	if be.DType != nil {
		rep.Precision = be.DType.Name
	}
	if target == nil {
		return rep, nil
	}

	size, err := res.Project(be.Format, *target)
	switch {
	case errors.Is(err, estimate.ErrNotProjectable):
		rep.Notes = append(rep.Notes, fmt.Sprintf("%s size was sampled from files; %s not applied", be.Format, target.Name))
	case err != nil:
		return nil, err
	default:
		rep.SizeBytes = size
		rep.Precision = target.Name
	}
	return rep, nil
}

func devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List detected GPUs and their memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			if _, err := loadConfig(cmd); err != nil {
				return err
			}

			inv := prober.Probe(cmd.Context())
			if out != render.FormatText {
				return render.Encode(cmd.OutOrStdout(), out, inv)
			}
			render.Devices(cmd.OutOrStdout(), inv, palette(cmd.OutOrStdout()))
			return nil
		},
	}

	addOutputFlag(cmd)
	return cmd
}
