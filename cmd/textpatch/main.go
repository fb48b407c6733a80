// Package main implements the textpatch command line tool and MCP server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taigrr/textpatch/internal/config"
	"github.com/taigrr/textpatch/internal/patcher"
	"github.com/taigrr/textpatch/internal/pathfilter"
	"github.com/taigrr/textpatch/internal/search"
	"github.com/taigrr/textpatch/internal/types"
)

var (
	rootDir    string
	configPath string
	verbose    bool
)

func main() {
	cmd := &cobra.Command{
		Use:   "textpatch",
		Short: "Idempotent search-and-replace patches for source files",
		Long: `textpatch applies declarative search-and-replace patches to text files.
Each patch names a target file, the fragment to look for and its
replacement. A patch is applied at most once: running it again reports
it as already applied and leaves the file untouched.`,
		Example: `textpatch apply patches/crm
textpatch check patches/crm
textpatch replace routes/chat.js -s "if (leadDetail) {" -r "if (false && leadDetail) {"
textpatch find "toolStatus"`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&rootDir, "root", "", "Directory patch targets are resolved against (default: current directory)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <root>/"+config.DefaultFile+")")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every evaluated operation to stderr")

	cmd.AddCommand(
		newApplyCmd(),
		newCheckCmd(),
		newReplaceCmd(),
		newFindCmd(),
		newServeCmd(),
	)

	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

// app holds what every command needs: the root, the loaded configuration,
// the path filter and the logger.
type app struct {
	root   string
	cfg    types.Config
	filter *pathfilter.PathFilter
	logger *zap.Logger
}

func newApp(root string) (*app, error) {
	if root == "" {
		root = rootDir
	}
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid root: %s is not a directory", root)
	}

	cfg, err := config.Load(root, configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &app{
		root:   root,
		cfg:    cfg,
		filter: pathfilter.New(&cfg.Filter),
		logger: logger,
	}, nil
}

// patcher builds a patcher Service. Backups are enabled by the flag or by
// the configuration file.
func (a *app) patcher(dryRun, backup, showDiff bool) *patcher.Service {
	return patcher.New(a.root, a.filter, patcher.Options{
		DryRun:      dryRun,
		Backup:      backup || a.cfg.Backup,
		Diff:        showDiff,
		DiffContext: a.cfg.DiffContext,
		Logger:      a.logger,
	})
}

func (a *app) search() *search.Service {
	return search.New(a.root, a.filter)
}
