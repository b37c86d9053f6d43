package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/depscout/depscout/pkg/errors"
	"github.com/depscout/depscout/pkg/risk"
	"github.com/depscout/depscout/pkg/scan"
)

// scanOpts holds the command-line flags for the scan command.
type scanOpts struct {
	path       string // scan a local checkout instead of cloning
	configFile string // explicit config file path
	output     string // report file path (stdout if empty)
	jsonOut    bool   // emit the raw JSON report
	noCache    bool   // bypass the registry response cache
}

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	opts := scanOpts{}

	cmd := &cobra.Command{
		Use:   "scan [REPO_URL]",
		Short: "Scan a repository for dependency license risk",
		Long: `Scan clones a repository (or walks a local checkout with --path),
parses every dependency manifest it finds, resolves license data for
each dependency and prints a per-dependency risk report.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.path == "" {
				return apperrors.New(apperrors.ErrCodeInvalidInput, "provide a repository URL or --path")
			}
			if len(args) == 1 && opts.path != "" {
				return apperrors.New(apperrors.ErrCodeInvalidInput, "a repository URL and --path are mutually exclusive")
			}

			ctx := cmd.Context()
			comps, err := c.newComponents(ctx, opts.configFile, opts.noCache)
			if err != nil {
				return err
			}
			defer comps.Close()

			start := time.Now()
			var report *scan.Report
			if opts.path != "" {
				report, err = comps.Scanner.ScanTree(ctx, opts.path, "")
			} else {
				report, err = comps.Scanner.ScanRepository(ctx, args[0])
			}
			if err != nil {
				return err
			}

			if opts.jsonOut || opts.output != "" {
				return writeReport(report, opts.output)
			}
			displayReport(report, time.Since(start))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.path, "path", "", "scan a local directory instead of cloning")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "config file (default depscout.yaml)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the JSON report to a file")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the raw JSON report")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the registry response cache")

	return cmd
}

// writeReport marshals the report and writes it to path, or stdout
// when path is empty.
func writeReport(report *scan.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "encode report")
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "write report to %s", path)
	}
	printSuccess("Report written")
	printDetail("File: %s", path)
	return nil
}

// displayReport prints the styled terminal report.
func displayReport(report *scan.Report, elapsed time.Duration) {
	title := report.Name
	if title == "" {
		title = report.RepositoryURL
	}
	if title == "" {
		title = "local scan"
	}
	fmt.Println(StyleTitle.Render(title))
	if report.Platform != "" {
		printKeyValue("platform", report.Platform)
	}
	printKeyValue("manifests", fmt.Sprintf("%d", len(report.AnalyzedFiles)))
	printKeyValue("packages", fmt.Sprintf("%d", len(report.Dependencies)))
	fmt.Println()

	counts := map[string]int{}
	for _, dep := range report.Dependencies {
		level := dep.RiskLevel
		if level == "" {
			level = risk.LevelUnknown
		}
		counts[level]++
		printDependency(dep.Name, dep.Version, dep.LicenseName, level, dep.RiskScore)
	}
	fmt.Println()

	if counts[risk.LevelHigh] > 0 {
		printWarning("%d high risk %s found", counts[risk.LevelHigh], plural("package", counts[risk.LevelHigh]))
	}
	printSuccess("Scanned %d %s in %s",
		len(report.Dependencies), plural("package", len(report.Dependencies)),
		elapsed.Round(time.Millisecond))
	for _, level := range []string{risk.LevelHigh, risk.LevelMedium, risk.LevelLow, risk.LevelUnknown} {
		if counts[level] > 0 {
			printDetail("%s: %d", level, counts[level])
		}
	}
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
