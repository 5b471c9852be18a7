package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"scanguard/internal/cache"
	"scanguard/internal/config"
	"scanguard/internal/model"
	"scanguard/internal/pipeline"
	"scanguard/internal/progress"
	"scanguard/internal/report"
	"scanguard/internal/rules"
	"scanguard/internal/safefile"
	"scanguard/internal/targets"
	"scanguard/internal/tui"
)

// runScanLike implements the scan, scan-all, and fix subcommands, which
// share every flag and differ only in two defaults: scan-all widens the
// walk to include files the default walk skips, and fix forces the
// comment-out pass on regardless of --fix.
func runScanLike(args []string, commandName string, forceFullDepth, forceFix bool) (int, error) {
	fs := flag.NewFlagSet(commandName, flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())

	format := fs.String("format", "table", "Output format: table|json|sarif")
	jsonShortcut := fs.Bool("json", false, "Shorthand for --format json")
	output := fs.String("output", "", "Write the report here instead of stdout")
	failOn := fs.String("fail-on", "", "Exit 2 if any finding is at or above this severity: LOW|MEDIUM|HIGH|CRITICAL")
	rulesPath := fs.String("rules", "", "Path to a custom rule catalog (default: the built-in catalog)")
	fullDepth := fs.Bool("full-depth", false, "Include binary-extension files (.so/.dll/.dylib/.bin/.exe) the default walk skips")
	useBehavioral := fs.Bool("use-behavioral", true, "Enable behavioral heuristics (default)")
	noBehavioral := fs.Bool("no-behavioral", false, "Disable behavioral heuristics")
	enableMeta := fs.Bool("enable-meta", false, "Collapse duplicate findings across targets")
	fix := fs.Bool("fix", false, "Comment out the offending line for every surviving finding")
	showConfidence := fs.Bool("show-confidence", false, "Attach a confidence score to findings and show it in the table")
	minConfidence := fs.Float64("min-confidence", 0, "Drop findings scoring below this confidence (0.0-1.0)")
	enableTUI := fs.Bool("tui", false, "Force the interactive progress view")
	disableTUI := fs.Bool("no-tui", false, "Force the plain progress sink")

	var skillsDirs, extensionsDirs, ideExtensionDirs listFlag
	fs.Var(&skillsDirs, "skills-dir", "Additional skill directory to scan (repeatable or comma-separated)")
	fs.Var(&extensionsDirs, "extensions-dir", "Additional unpacked browser extension directory to scan (repeatable or comma-separated)")
	fs.Var(&ideExtensionDirs, "ide-extensions-dir", "Additional installed IDE extension directory to scan (repeatable or comma-separated)")

	var positional string
	parseArgs := args
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		positional = args[0]
		parseArgs = args[1:]
	}
	if err := fs.Parse(parseArgs); err != nil {
		return exitUsageError, err
	}
	remaining := fs.Args()
	switch {
	case positional == "" && len(remaining) == 1:
		positional = remaining[0]
	case positional != "" && len(remaining) == 0:
		// fine
	case positional == "" && len(remaining) == 0:
		// fine only if an extra target dir was supplied below
	default:
		return exitUsageError, usageError(fmt.Sprintf("usage: scanguard %s <path> [flags]", commandName))
	}

	formatValue, err := normalizeFormatFlag(*format)
	if err != nil {
		return exitUsageError, err
	}
	if *jsonShortcut {
		formatValue = "json"
	}
	failOnValue, err := normalizeSeverityFlag(*failOn)
	if err != nil {
		return exitUsageError, err
	}
	if *minConfidence < 0 || *minConfidence > 1 {
		return exitUsageError, usageError("--min-confidence must be between 0.0 and 1.0")
	}
	if *enableTUI && *disableTUI {
		return exitUsageError, usageError("cannot set both --tui and --no-tui")
	}

	var tgts []model.Target
	if positional != "" {
		tgts = append(tgts, targets.NewPathTarget(filepath.Base(positional), positional))
	}
	for _, d := range skillsDirs.Values() {
		tgts = append(tgts, targets.NewSkillTarget(filepath.Base(d), d))
	}
	for _, d := range extensionsDirs.Values() {
		tgts = append(tgts, targets.NewExtensionTarget(filepath.Base(d), d, nil))
	}
	for _, d := range ideExtensionDirs.Values() {
		tgts = append(tgts, targets.NewIDEExtensionTarget(filepath.Base(d), d, nil))
	}
	if len(tgts) == 0 {
		return exitUsageError, usageError(fmt.Sprintf("usage: scanguard %s <path> [flags]", commandName))
	}

	settings, err := config.Load()
	if err != nil {
		return exitUsageError, err
	}

	catalog, catalogWarnings, err := loadCatalog(*rulesPath)
	if err != nil {
		return exitUsageError, err
	}

	scanCache, err := openCache(settings, catalog.Version())
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	ignoreRules, err := targets.LoadIgnoreFile(ignoreFilePath(positional))
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: reading .scanguardignore:", err)
	}

	includeBinary := *fullDepth || forceFullDepth
	computeConfidence := *showConfidence || *minConfidence > 0
	runID := time.Now().UTC().Format("20060102T150405.000000000Z")

	useTUI := isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stderr.Fd()) && formatValue == "table"
	if *enableTUI {
		useTUI = true
	}
	if *disableTUI {
		useTUI = false
	}

	var sink progress.Sink
	switch {
	case useTUI:
		// wired below once the events channel exists.
	case formatValue == "table":
		sink = progress.NewPlainSink(os.Stderr)
	default:
		sink = progress.NoopSink{}
	}

	opts := pipeline.Options{
		Settings:          settings,
		Catalog:           catalog,
		Cache:             scanCache,
		IgnoreRules:       ignoreRules,
		Behavioral:        *useBehavioral && !*noBehavioral,
		IncludeBinary:     includeBinary,
		EnableMeta:        *enableMeta,
		ComputeConfidence: computeConfidence,
		MinConfidence:     *minConfidence,
		Fix:               *fix || forceFix,
		RunID:             runID,
	}

	var result model.ScanResult
	if useTUI {
		events := make(chan progress.Event, 128)
		opts.Sink = progress.NewChannelSink(events)
		done := make(chan model.ScanResult, 1)
		go func() {
			defer close(events)
			done <- pipeline.Scan(context.Background(), tgts, opts)
		}()
		if err := tui.Run(tui.Options{Events: events, Title: titleCase(commandName)}); err != nil {
			return exitUsageError, err
		}
		result = <-done
	} else {
		opts.Sink = sink
		result = pipeline.Scan(context.Background(), tgts, opts)
	}

	if scanCache != nil {
		if err := scanCache.Persist(); err != nil {
			fmt.Fprintln(os.Stderr, "warning:", err)
		}
	}
	for _, w := range catalogWarnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	if err := renderResult(result, formatValue, *output, computeConfidence); err != nil {
		return exitUsageError, err
	}

	return report.DecideExitCode(result, failOnValue), nil
}

func renderResult(result model.ScanResult, format, output string, showConfidence bool) error {
	switch format {
	case "json":
		env := report.Build(result)
		if output != "" {
			return report.WriteJSON(output, env)
		}
		b, err := report.MarshalJSON(env)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	case "sarif":
		if output != "" {
			return report.WriteSARIF(output, result)
		}
		b, err := report.MarshalSARIF(result)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	default:
		text := report.RenderTable(result, showConfidence)
		if output != "" {
			return safefile.WriteFileAtomic(output, []byte(text), 0o644)
		}
		fmt.Print(text)
		if len(result.Warnings) > 0 {
			fmt.Fprintln(os.Stderr, "")
			for _, w := range result.Warnings {
				fmt.Fprintln(os.Stderr, "warning:", w)
			}
		}
		return nil
	}
}

func loadCatalog(customPath string) (*rules.Catalog, []error, error) {
	if customPath != "" {
		cat, warnings := rules.Load(customPath)
		if cat == nil {
			return nil, nil, fmt.Errorf("load rule catalog %s: %v", customPath, warnings)
		}
		return cat, warnings, nil
	}
	cat, warnings := rules.Default()
	if cat == nil {
		return nil, nil, fmt.Errorf("load built-in rule catalog: %v", warnings)
	}
	return cat, warnings, nil
}

func openCache(settings config.Settings, ruleVersion string) (*cache.Cache, error) {
	if !settings.CacheEnabled {
		return nil, nil
	}
	dir := settings.CacheDir
	if dir == "" {
		dir = defaultCacheDir()
	}
	if dir == "" {
		return cache.New("", ruleVersion, settings.CacheMaxAge, settings.CacheMaxEntries, settings.CacheMaxSizeBytes), nil
	}
	dir, err := safefile.EnsureDir(dir, 0o700, false)
	if err != nil {
		return cache.New("", ruleVersion, settings.CacheMaxAge, settings.CacheMaxEntries, settings.CacheMaxSizeBytes), err
	}
	path := filepath.Join(dir, "scan-cache.json")
	return cache.Open(path, ruleVersion, settings.CacheMaxAge, settings.CacheMaxEntries, settings.CacheMaxSizeBytes)
}

// defaultCacheDir resolves the OS user cache directory scanguard/ (spec
// §6's cache layout); os.UserCacheDir covers the three platform defaults
// (~/Library/Caches, %LOCALAPPDATA%, ~/.cache) so no third-party XDG
// helper is warranted here.
func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "scanguard")
}

func ignoreFilePath(root string) string {
	if root == "" {
		return ".scanguardignore"
	}
	return filepath.Join(root, ".scanguardignore")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
