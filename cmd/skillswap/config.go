package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omarluq/skillswap/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd(a), newConfigShowCmd(a))
	return cmd
}

func newConfigValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validate the configuration file without starting anything.
Checks syntax, value ranges and cross-field constraints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.configPath()
			if path == "" {
				return errors.New("no config file found (use --config or run: skillswap config init)")
			}

			cfg, err := config.Load(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "✗ Config validation failed: %s\n", err)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", path)
			return nil
		},
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if path := a.configPath(); path != "" {
				loaded, err := config.Load(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			data, err := config.Marshal(cfg, config.Format(strings.ToLower(format)))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", string(config.FormatYAML), "output format: yaml or toml")
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default config file",
		Long: `Generate a default skillswap configuration file at
~/.config/skillswap/skillswap.yaml. A .toml output path writes TOML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("failed to get home directory: %w", err)
				}
				output = filepath.Join(home, ".config", appName, defaultConfigFile)
			}

			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", output)
			}

			format := config.FormatFor(output)
			data, err := config.Marshal(config.Default(), format)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Config file created at %s\n", output)
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "  1. Add shared secrets under server.secrets")
			fmt.Fprintln(out, "  2. Validate with: skillswap config validate")
			fmt.Fprintln(out, "  3. Start the event server: skillswap serve")
			fmt.Fprintln(out, "  4. Save a token: skillswap session login <token>")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: ~/.config/skillswap/skillswap.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")
	return cmd
}
