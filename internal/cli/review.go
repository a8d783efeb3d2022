package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/cache"
	"github.com/redlinehq/redline/internal/config"
	"github.com/redlinehq/redline/internal/console"
	"github.com/redlinehq/redline/internal/gitlab"
	"github.com/redlinehq/redline/internal/guideline"
	"github.com/redlinehq/redline/internal/localgit"
	"github.com/redlinehq/redline/internal/output"
	"github.com/redlinehq/redline/internal/providers"
	"github.com/redlinehq/redline/internal/review"
)

// Shared review flags.
var (
	flagProject   string
	flagGitLabURL string
	flagProvider  string
	flagModel     string
	flagPaths     string
	flagExclude   string
	flagFormat    string
	flagOut       string
	flagFailOn    string
	flagDryRun    bool
	flagNoRedact  bool
	flagNoCache   bool
)

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagProvider, "provider", "", "LLM provider (azure, openai, anthropic, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model or deployment name")
	cmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Report format (text, json)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Report file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit non-zero when findings are posted (never, findings)")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the response cache")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagProvider != "" {
		m["provider"] = flagProvider
	}
	if flagModel != "" {
		m["model"] = flagModel
	}
	if flagProject != "" {
		m["project"] = flagProject
	}
	if flagGitLabURL != "" {
		m["gitlabUrl"] = flagGitLabURL
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	return m
}

func splitComma(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func engineOptions(cfg config.Config) review.Options {
	opts := review.Options{
		ProximityWindow: cfg.ProximityWindow,
		PassConcurrency: cfg.PassConcurrency,
		EmitWorkers:     cfg.EmitWorkers,
		Include:         cfg.Include,
		Exclude:         cfg.Exclude,
	}
	if flagPaths != "" {
		opts.Include = splitComma(flagPaths)
	}
	if flagExclude != "" {
		opts.Exclude = append(opts.Exclude, splitComma(flagExclude)...)
	}
	return opts
}

// newGenerator builds the finding generator from the effective config.
func newGenerator(cfg config.Config) (*providers.Generator, error) {
	completer, err := providers.New(cfg.Provider, cfg.Model, cfg.Timeout())
	if err != nil {
		return nil, err
	}

	if flagNoRedact {
		cfg.Privacy.RedactSecrets = false
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}

	cacheEnabled := cfg.Cache.Enabled && !flagNoCache
	respCache, err := cache.New(cacheEnabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	return providers.NewGenerator(completer, providers.GeneratorOptions{
		Cache:         respCache,
		RedactSecrets: cfg.Privacy.RedactSecrets,
		RedactPaths:   cfg.Privacy.RedactPaths,
		Log:           newLogger(),
	}), nil
}

func classifyError(err error) int {
	switch {
	case providers.IsAuthError(err):
		return ExitAuthError
	case guideline.IsConfigError(err):
		return ExitUsageError
	default:
		return ExitRuntimeError
	}
}

func finishRun(report *review.Report, cfg config.Config) {
	if err := output.WriteReport(report, flagFormat, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		exitCode = ExitRuntimeError
		return
	}
	if cfg.FailOn == "findings" && report.Posted > 0 {
		exitCode = ExitFindings
	}
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review code changes against project guidelines",
	Long:  "Review code changes using an LLM provider. Use subcommands to pick the change source.",
}

var reviewMRCmd = &cobra.Command{
	Use:   "mr <iid>",
	Short: "Review a GitLab merge request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		sources, err := guideline.LoadDir(guideline.DocumentDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		gen, err := newGenerator(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = classifyError(err)
			return nil
		}

		client, err := gitlab.NewClient(cfg.GitLabURL, cfg.Project, cfg.Timeout())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}

		var sink review.CommentSink = client
		if flagDryRun {
			sink = console.NewSink(os.Stderr)
		}

		engine := review.NewEngine(client, gen, sink, newLogger(), engineOptions(cfg))

		ctx := context.Background()
		report, err := engine.Run(ctx, args[0], sources)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = classifyError(err)
			return nil
		}

		// A clean run still leaves a trace on the MR.
		if !flagDryRun && report.Candidates == 0 && report.FailedPasses() == 0 {
			note := "Automated review finished: nothing to report."
			if err := client.PostNote(ctx, args[0], note); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not post summary note: %v\n", err)
			}
		}

		finishRun(report, cfg)
		return nil
	},
}

var reviewLocalCmd = &cobra.Command{
	Use:   "local",
	Short: "Review uncommitted changes in the current repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}

		sources, err := guideline.LoadDir(guideline.DocumentDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		gen, err := newGenerator(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = classifyError(err)
			return nil
		}

		src, err := localgit.NewSource("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		sink := console.NewSink(os.Stdout)
		engine := review.NewEngine(src, gen, sink, newLogger(), engineOptions(cfg))

		ctx := context.Background()
		changeRef := src.Branch(ctx)
		if changeRef == "" {
			changeRef = "local"
		}

		report, err := engine.Run(ctx, changeRef, sources)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = classifyError(err)
			return nil
		}

		sink.PrintSummary(report)
		finishRun(report, cfg)
		return nil
	},
}

func init() {
	reviewCmd.AddCommand(reviewMRCmd)
	reviewCmd.AddCommand(reviewLocalCmd)

	for _, cmd := range []*cobra.Command{reviewMRCmd, reviewLocalCmd} {
		addReviewFlags(cmd)
	}

	// MR-specific flags
	reviewMRCmd.Flags().StringVar(&flagProject, "project", "", "GitLab project (group/name or numeric ID)")
	reviewMRCmd.Flags().StringVar(&flagGitLabURL, "gitlab-url", "", "GitLab base URL")
	reviewMRCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print findings instead of posting comments")
}
