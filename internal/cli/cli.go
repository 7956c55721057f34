// Package cli implements the cutopt command-line interface.
//
// The main commands are:
//   - pack: run the optimizer over a box list and print or export the result
//   - compare: run what-if scenarios side by side
//   - estimate: area-based bin purchase estimate without packing
//
// All commands support --verbose (-v) for debug-level logging via the
// charmbracelet/log library. Box lists load from TOML job files, CSV,
// Excel or DXF drawings, selected by file extension.
package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/piwi3910/cutopt/internal/importer"
	"github.com/piwi3910/cutopt/internal/model"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "cutopt",
		Short:        "cutopt packs rectangular boxes onto stock bins with guillotine cuts",
		Long:         `cutopt is a cutting stock optimizer for panel saws: it packs rectangular boxes onto standard sheets and offcuts using guillotine cuts, searching many placement heuristics in parallel and keeping the most material-efficient layout.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(c.packCommand())
	root.AddCommand(c.compareCommand())
	root.AddCommand(c.estimateCommand())

	return root
}

// loadBoxes reads a flat box list from CSV, Excel or DXF.
func loadBoxes(path string, logger *log.Logger) ([]model.Box, error) {
	var result importer.ImportResult
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		result = importer.ImportCSV(path)
	case ".xlsx", ".xls":
		result = importer.ImportExcel(path)
	case ".dxf":
		result = importer.ImportDXF(path)
	default:
		return nil, fmt.Errorf("unsupported input format %q", filepath.Ext(path))
	}

	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("import failed: %s", strings.Join(result.Errors, "; "))
	}
	if len(result.Boxes) == 0 {
		return nil, fmt.Errorf("no boxes found in %s", path)
	}
	return result.Boxes, nil
}

// loadUniverse loads config, boxes and bins from any supported input.
func loadUniverse(path string, logger *log.Logger) (model.Config, []model.Box, []model.Bin, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		job, err := importer.LoadJob(path)
		if err != nil {
			return model.Config{}, nil, nil, err
		}
		if len(job.Boxes) == 0 {
			return model.Config{}, nil, nil, fmt.Errorf("no boxes found in %s", path)
		}
		return job.Config, job.Boxes, job.Bins, nil
	}

	boxes, err := loadBoxes(path, logger)
	if err != nil {
		return model.Config{}, nil, nil, err
	}
	return model.DefaultConfig(), boxes, nil, nil
}
