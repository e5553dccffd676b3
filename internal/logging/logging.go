// Package logging builds the process zerolog.Logger from LoggingConfig.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/omarluq/skillswap/internal/config"
)

// New creates a logger from cfg. The returned closer releases the log file
// when output goes to a file and is a no-op otherwise.
func New(cfg config.LoggingConfig) (zerolog.Logger, io.Closer, error) {
	output, outputFile, err := selectOutput(cfg.Output)
	if err != nil {
		return zerolog.Logger{}, nopCloser{}, err
	}

	var closer io.Closer = nopCloser{}
	if outputFile != nil && outputFile != os.Stdout && outputFile != os.Stderr {
		closer = outputFile
	}

	if shouldUsePretty(cfg, outputFile) {
		output = buildConsoleWriter(output, outputFile)
	}

	logger := zerolog.New(output).
		Level(cfg.ParseLevel()).
		With().
		Timestamp().
		Logger()

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// selectOutput returns the output writer and file handle for the given output config.
func selectOutput(outputCfg string) (io.Writer, *os.File, error) {
	switch outputCfg {
	case "", "stdout":
		return os.Stdout, os.Stdout, nil
	case "stderr":
		return os.Stderr, os.Stderr, nil
	default:
		outputCfg = filepath.Clean(outputCfg)
		f, err := os.OpenFile(outputCfg, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", outputCfg, err)
		}
		return f, f, nil
	}
}

func shouldUsePretty(cfg config.LoggingConfig, outputFile *os.File) bool {
	if cfg.Pretty {
		return true
	}

	switch cfg.Format {
	case "pretty":
		return true
	case "json":
		return false
	default:
		// console and unset both follow the terminal
		return isTerminal(outputFile)
	}
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func buildConsoleWriter(output io.Writer, outputFile *os.File) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:             output,
		TimeFormat:      "15:04:05",
		NoColor:         !isTerminal(outputFile),
		FormatLevel:     formatLevel,
		FormatMessage:   formatMessage,
		FormatFieldName: formatFieldName,
		FormatFieldValue: func(i any) string {
			return fmt.Sprintf("%s", i)
		},
	}
}

var levelColors = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
	"fatal": "\033[35mFTL\033[0m",
	"panic": "\033[35mPNC\033[0m",
}

func formatLevel(i any) string {
	levelStr, ok := i.(string)
	if !ok {
		return ""
	}
	if colored, exists := levelColors[levelStr]; exists {
		return colored
	}
	return levelStr
}

func formatMessage(i any) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("-> %s", i)
}

func formatFieldName(i any) string {
	return fmt.Sprintf("\033[2m%s=\033[0m", i)
}

// WithOperation returns a context whose logger carries an operation id.
// An empty id is replaced with a fresh UUID.
func WithOperation(ctx context.Context, logger *zerolog.Logger, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	l := logger.With().Str("op_id", id).Logger()
	return l.WithContext(ctx)
}

// Component returns a child logger tagged with component.
func Component(logger *zerolog.Logger, component string) *zerolog.Logger {
	l := logger.With().Str("component", component).Logger()
	return &l
}
