package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	_ "github.com/everstacklabs/hfest/internal/accelerator/vendors/amd"    // register AMD querier
	_ "github.com/everstacklabs/hfest/internal/accelerator/vendors/apple"  // register Apple querier
	_ "github.com/everstacklabs/hfest/internal/accelerator/vendors/intel"  // register Intel querier
	_ "github.com/everstacklabs/hfest/internal/accelerator/vendors/nvidia" // register NVIDIA querier
	"github.com/everstacklabs/hfest/internal/cache"
	"github.com/everstacklabs/hfest/internal/config"
	"github.com/everstacklabs/hfest/internal/estimate"
	"github.com/everstacklabs/hfest/internal/httpclient"
	"github.com/everstacklabs/hfest/internal/hub"
	"github.com/everstacklabs/hfest/internal/localrepo"
	"github.com/everstacklabs/hfest/internal/render"
)

var version = "dev"

var (
	cfgFile string
	verbose bool
)

var errNoCommand = errors.New("no command given")

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hfest",
		Short:         "Hugging Face model size estimator",
		Long:          "Estimates the size of models on the Hugging Face Hub and checks them against local GPU memory.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), "")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errNoCommand
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("HFEST_CONFIG"), "config file (default: ~/.config/hfest/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		estimateSizeCmd(),
		estimateResourceCmd(),
		devicesCmd(),
		configCmd(),
		cacheCmd(),
	)
	return rootCmd
}

func estimateSizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate-size <model_id>",
		Short: "Estimate a model's size per file format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			src, err := newSource(cmd, cfg)
			if err != nil {
				return err
			}

			res, err := newEstimator(src, cmd.ErrOrStderr()).Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if out != render.FormatText {
				return render.Encode(cmd.OutOrStdout(), out, res)
			}
			render.Estimate(cmd.OutOrStdout(), res, palette(cmd.OutOrStdout()))
			return nil
		},
	}

	addSourceFlags(cmd)
	addOutputFlag(cmd)
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cmd.ErrOrStderr(), cfg.LogLevel)
	return cfg, nil
}

// setupLogging installs a text handler on w. --verbose wins over the
// configured level; an unparseable level falls back to warn.
func setupLogging(w io.Writer, level string) {
	lvl := slog.LevelWarn
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl = slog.LevelWarn
		}
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("local", false, "read the model from a clone under default_model_path instead of the Hub")
	cmd.Flags().Bool("no-cache", false, "bypass the HTTP response cache")
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", string(render.FormatText), "output format: text, json, or yaml")
}

func outputFormat(cmd *cobra.Command) (render.Format, error) {
	s, _ := cmd.Flags().GetString("output")
	return render.ParseFormat(s)
}

// newSource picks the local clone reader or the Hub client.
func newSource(cmd *cobra.Command, cfg *config.Config) (estimate.Source, error) {
	local, _ := cmd.Flags().GetBool("local")
	if local {
		if cfg.DefaultModelPath == "" {
			return nil, errors.New("default_model_path is not set; run `hfest config set default_model_path <dir>`")
		}
		slog.Debug("using local clones", "root", cfg.DefaultModelPath)
		return localrepo.New(cfg.DefaultModelPath), nil
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	return hub.New(cfg.Endpoint, cfg.APIKey, newHTTPClient(cfg, noCache)), nil
}

func newHTTPClient(cfg *config.Config, noCache bool) *httpclient.Client {
	// Set up cache
	var fileCache *cache.FileCache
	if !noCache {
		fc, err := cache.New(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			slog.Warn("failed to create cache, continuing without", "error", err)
		} else {
			fileCache = fc
		}
	}

	opts := []httpclient.Option{
		httpclient.WithRateLimit(cfg.RateLimit),
		httpclient.WithTimeout(cfg.Timeout),
		httpclient.WithBearerToken(cfg.APIKey),
		httpclient.WithUserAgent("hfest/" + version),
	}
	if fileCache != nil {
		opts = append(opts, httpclient.WithCache(fileCache))
	}
	if noCache {
		opts = append(opts, httpclient.WithNoCache())
	}
	return httpclient.New(opts...)
}

// newEstimator wires sampling progress to a bar on w.
func newEstimator(src estimate.Source, w io.Writer) *estimate.Estimator {
	var bar *progressbar.ProgressBar
	return &estimate.Estimator{
		Source: src,
		Progress: func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(w),
					progressbar.OptionSetDescription("sampling file sizes"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
			if done == total {
				_ = bar.Finish()
			}
		},
	}
}

// palette enables color only for terminals, honoring NO_COLOR.
func palette(w io.Writer) render.Palette {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return render.Palette{}
	}
	f, ok := w.(*os.File)
	return render.Palette{Enabled: ok && term.IsTerminal(int(f.Fd()))}
}
