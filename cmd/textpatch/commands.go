package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taigrr/textpatch/internal/patchfile"
	"github.com/taigrr/textpatch/internal/report"
	"github.com/taigrr/textpatch/internal/types"
)

var (
	errUnmatched  = errors.New("some operations did not match")
	errNotApplied = errors.New("some operations are not applied")
)

func newApplyCmd() *cobra.Command {
	var dryRun, showDiff, backup, strict bool

	cmd := &cobra.Command{
		Use:   "apply PATCH...",
		Short: "Apply patch documents",
		Long: `Apply the operations of one or more patch documents. Directories
contribute their *.patch files in lexical order. Operations that do not
match are reported and skipped; use --strict to turn them into a failure.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp("")
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			docs, err := patchfile.New().LoadAll(args)
			if err != nil {
				return err
			}

			results, err := a.patcher(dryRun, backup, showDiff).Apply(cmd.Context(), patchfile.Operations(docs))
			printer := report.New(cmd.OutOrStdout())
			for _, fr := range results {
				printer.File(fr)
			}
			printer.Summary(results)
			if err != nil {
				return err
			}

			if c := report.Tally(results); strict && c.Missed() > 0 {
				return fmt.Errorf("%w: %d of %d", errUnmatched, c.Missed(), c.Total())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report what would change without writing")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "Print a unified diff of each change")
	cmd.Flags().BoolVar(&backup, "backup", false, "Keep a copy of each modified file as <file>.orig")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when an operation is not found or matches an unexpected number of times")

	return cmd
}

func newCheckCmd() *cobra.Command {
	var showDiff bool

	cmd := &cobra.Command{
		Use:   "check PATCH...",
		Short: "Verify that patch documents are applied",
		Long: `Evaluate patch documents without writing anything. The command fails
unless every operation is already applied.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp("")
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			docs, err := patchfile.New().LoadAll(args)
			if err != nil {
				return err
			}

			results, err := a.patcher(true, false, showDiff).Apply(cmd.Context(), patchfile.Operations(docs))
			printer := report.New(cmd.OutOrStdout())
			for _, fr := range results {
				printer.File(fr)
			}
			printer.Summary(results)
			if err != nil {
				return err
			}

			if c := report.Tally(results); c.AlreadyApplied != c.Total() {
				return fmt.Errorf("%w: %d of %d", errNotApplied, c.Total()-c.AlreadyApplied, c.Total())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showDiff, "diff", false, "Print the diff each pending operation would produce")

	return cmd
}

func newReplaceCmd() *cobra.Command {
	var (
		op                       types.PatchOperation
		searchFile, replaceFile  string
		dryRun, showDiff, backup bool
	)

	cmd := &cobra.Command{
		Use:   "replace FILE",
		Short: "Apply a single search-and-replace operation",
		Long: `Replace a fragment of FILE. The fragment is matched literally unless
--regex is set. A fragment that occurs more than once is left alone
unless --all is set.

FILE must have a known text extension (source, markup, config and script
types) or none at all. Add others under filter.allowedExtensions in
.textpatch.yaml.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp("")
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			if searchFile != "" {
				if op.Search, err = readArgFile(searchFile); err != nil {
					return err
				}
			}
			if replaceFile != "" {
				if op.Replace, err = readArgFile(replaceFile); err != nil {
					return err
				}
			}
			op.Target = args[0]
			if op.Name == "" {
				op.Name = args[0]
			}

			fr, err := a.patcher(dryRun, backup, showDiff).ApplyFile(cmd.Context(), op.Target, []types.PatchOperation{op})
			if err != nil {
				return err
			}
			report.New(cmd.OutOrStdout()).File(fr)
			return nil
		},
	}

	cmd.Flags().StringVarP(&op.Search, "search", "s", "", "Text (or regular expression with --regex) to replace")
	cmd.Flags().StringVar(&searchFile, "search-file", "", "Read the search text from a file")
	cmd.Flags().StringVarP(&op.Replace, "replace", "r", "", "Replacement text")
	cmd.Flags().StringVar(&replaceFile, "replace-file", "", "Read the replacement text from a file")
	cmd.Flags().StringVar(&op.Name, "name", "", "Label printed in the status line (default: FILE)")
	cmd.Flags().BoolVar(&op.Regex, "regex", false, "Treat the search text as a regular expression")
	cmd.Flags().StringVar(&op.Flags, "flags", "", "Regular expression flags (i, m, s, U)")
	cmd.Flags().BoolVar(&op.ReplaceAll, "all", false, "Replace every occurrence")
	cmd.Flags().BoolVar(&op.Expand, "expand", false, "Expand $1 and ${name} in the replacement (regex only)")
	cmd.Flags().IntVar(&op.Expect, "expect", 0, "Required number of occurrences (0: any)")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report what would change without writing")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "Print a unified diff of the change")
	cmd.Flags().BoolVar(&backup, "backup", false, "Keep a copy of the original as FILE.orig")

	cmd.MarkFlagsMutuallyExclusive("search", "search-file")
	cmd.MarkFlagsOneRequired("search", "search-file")
	cmd.MarkFlagsMutuallyExclusive("replace", "replace-file")
	cmd.MarkFlagsOneRequired("replace", "replace-file")

	return cmd
}

func readArgFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(content), nil
}

func newFindCmd() *cobra.Command {
	var params types.FindParams

	cmd := &cobra.Command{
		Use:   "find QUERY",
		Short: "Find where a fragment occurs under the root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp("")
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			params.Query = args[0]
			results, total, err := a.search().Find(cmd.Context(), params)
			if err != nil {
				return err
			}
			if total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matches")
				return nil
			}
			report.New(cmd.OutOrStdout()).Matches(results, total)
			return nil
		},
	}

	cmd.Flags().BoolVar(&params.UseRegex, "regex", false, "Treat the query as a regular expression")
	cmd.Flags().BoolVar(&params.CaseSensitive, "case-sensitive", false, "Match case")
	cmd.Flags().IntVarP(&params.ContextLines, "context", "C", 2, "Lines of context around each match")
	cmd.Flags().IntVar(&params.Limit, "limit", 15, "Maximum number of files")
	cmd.Flags().IntVar(&params.Offset, "offset", 0, "Skip the first N files")

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [root]",
		Short: "Run the MCP server on stdio",
		Long: `serve exposes the apply, check and find operations as Model Context
Protocol tools over stdin/stdout. The root defaults to --root or the
current directory.`,
		Example: `textpatch serve ~/src/crm`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var root string
			if len(args) > 0 {
				root = args[0]
			}
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			server := mcp.NewServer(&mcp.Implementation{
				Name:    "textpatch",
				Version: version,
			}, nil)

			registerTools(server, a)

			a.logger.Info("serving", zap.String("root", a.root))
			if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
				return fmt.Errorf("error running server: %w", err)
			}
			return nil
		},
	}
}
