package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/everstacklabs/hfest/internal/config"
	"github.com/everstacklabs/hfest/internal/render"
	"github.com/everstacklabs/hfest/internal/validate"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write persistent settings",
		Long:  "Settings live in a JSON file; keys: " + strings.Join(config.Keys(), ", ") + ".",
	}

	cmd.AddCommand(configGetCmd(), configSetCmd(), configListCmd())
	return cmd
}

func configGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.NewStore(cfgFile).Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if !config.IsKey(key) {
				return fmt.Errorf("%w: %s (want one of %s)", config.ErrUnknownKey, key, strings.Join(config.Keys(), ", "))
			}

			store := config.NewStore(cfgFile)
			values, err := store.Read()
			if err != nil {
				return err
			}
			values[key] = value

			result := validate.Settings(values)
			for _, w := range result.Warnings() {
				slog.Warn("config warning", "key", w.Key, "message", w.Message)
			}
			if result.HasErrors() {
				fmt.Fprint(cmd.ErrOrStderr(), validate.FormatResult(result))
				return fmt.Errorf("invalid value for %s", key)
			}

			if err := store.Set(key, value); err != nil {
				return err
			}
			slog.Info("config updated", "key", key, "path", store.Path())
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", key)
			return nil
		},
	}
}

func configListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			values, err := config.NewStore(cfgFile).Read()
			if err != nil {
				return err
			}
			values["api_key"] = validate.MaskSecret(values["api_key"])

			if out != render.FormatText {
				return render.Encode(cmd.OutOrStdout(), out, values)
			}
			for _, k := range config.Keys() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k, values[k])
			}
			return nil
		},
	}

	addOutputFlag(cmd)
	return cmd
}
