// Package main is the entry point for skillswap.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/omarluq/skillswap/internal/di"
)

const (
	defaultConfigFile = "skillswap.yaml"
	appName           = "skillswap"
)

// app carries the global flags shared by every subcommand.
type app struct {
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   appName,
		Short: "SkillSwap cache and realtime event tooling",
		Long: `skillswap runs the realtime event server used by SkillSwap clients and
offers commands to inspect the tiered cache, manage the persisted session,
and talk to the event channel.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/"+appName+"/"+defaultConfigFile+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "keep info logs on one-shot commands")

	root.AddCommand(
		newServeCmd(a),
		newListenCmd(a),
		newEmitCmd(a),
		newCacheCmd(a),
		newSessionCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := fang.Execute(context.Background(), newRootCmd()); err != nil {
		os.Exit(1)
	}
}

// configPath returns --config, or the first default location that exists.
// An empty result means no file was found and built-in defaults apply.
func (a *app) configPath() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	return findConfigFile()
}

// withContainer builds the container, runs fn, and shuts the container down.
// One-shot commands run at warn level unless --verbose is set.
func (a *app) withContainer(fn func(*di.Container) error) (err error) {
	container, err := di.NewContainer(a.configPath())
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := container.Shutdown(); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}()

	if _, err := di.Invoke[*di.LoggerService](container); err != nil {
		return err
	}
	if !a.verbose && zerolog.GlobalLevel() < zerolog.WarnLevel {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
	return fn(container)
}

func findConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return findConfigIn(".", home)
}

// findConfigIn looks for the config in dir, then under home/.config/skillswap.
func findConfigIn(dir, home string) string {
	candidates := []string{filepath.Join(dir, defaultConfigFile)}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", appName, defaultConfigFile))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
