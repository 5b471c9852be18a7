package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"scanguard/internal/config"
	"scanguard/internal/mcp"
	"scanguard/internal/model"
	"scanguard/internal/pipeline"
	"scanguard/internal/progress"
	"scanguard/internal/report"
	"scanguard/internal/targets"
)

// runMCPRemote implements `scanguard mcp remote <url>`: it connects to a
// live MCP server, virtualizes its tools/prompts/resources/instructions
// into scannable files (internal/mcp.Collect), and scans the result
// exactly like any other target (spec §6 MCP options).
func runMCPRemote(args []string) (int, error) {
	fs := flag.NewFlagSet("mcp remote", flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())

	format := fs.String("format", "table", "Output format: table|json|sarif")
	jsonShortcut := fs.Bool("json", false, "Shorthand for --format json")
	output := fs.String("output", "", "Write the report here instead of stdout")
	failOn := fs.String("fail-on", "", "Exit 2 if any finding is at or above this severity")
	rulesPath := fs.String("rules", "", "Path to a custom rule catalog")
	bearerToken := fs.String("bearer-token", "", "Bearer token sent with every MCP request")
	var headers listFlag
	fs.Var(&headers, "header", "Extra HTTP header as Name:Value (repeatable)")
	var scanParts listFlag
	fs.Var(&scanParts, "scan", "Object kinds list (tools,prompts,resources,instructions), recorded in the target's \"scan\" meta; every kind is virtualized regardless")
	readResources := fs.Bool("read-resources", false, "Fetch each listed resource's content, not just its metadata")
	var mimeTypes listFlag
	fs.Var(&mimeTypes, "mime-types", "Restrict resource reads to these MIME types (repeatable or comma-separated)")
	maxResourceBytes := fs.Int64("max-resource-bytes", 0, "Truncate resource content above this size (default 1MiB)")
	connectTimeout := fs.Duration("connect", 10*time.Second, "Connection/request timeout")
	showConfidence := fs.Bool("show-confidence", false, "Attach a confidence score to findings")
	minConfidence := fs.Float64("min-confidence", 0, "Drop findings scoring below this confidence")

	var positional string
	parseArgs := args
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		positional = args[0]
		parseArgs = args[1:]
	}
	if err := fs.Parse(parseArgs); err != nil {
		return exitUsageError, err
	}
	if positional == "" && len(fs.Args()) == 1 {
		positional = fs.Args()[0]
	}
	if positional == "" {
		return exitUsageError, usageError("usage: scanguard mcp remote <url> [flags]")
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

	headerMap, err := parseHeaders(headers.Values())
	if err != nil {
		return exitUsageError, err
	}

	allowedMIME := map[string]bool{}
	for _, m := range mimeTypes.Values() {
		allowedMIME[strings.ToLower(strings.TrimSpace(m))] = true
	}

	settings, err := config.Load()
	if err != nil {
		return exitUsageError, err
	}
	catalog, catalogWarnings, err := loadCatalog(*rulesPath)
	if err != nil {
		return exitUsageError, err
	}

	clientOpts := mcp.ClientOptions{
		BearerToken:       *bearerToken,
		Headers:           headerMap,
		MaxRetries:        settings.McpMaxRetries,
		RetryDelay:        settings.McpRetryDelay,
		Timeout:           *connectTimeout,
		RequestsPerSecond: 0,
	}
	virtOpts := mcp.VirtualizeOptions{
		ClientOptions:    clientOpts,
		ClientName:       "scanguard",
		ClientVersion:    catalog.Version(),
		ReadResources:    *readResources,
		AllowedMIME:      allowedMIME,
		MaxResourceBytes: *maxResourceBytes,
	}

	collector := func(ctx context.Context, target model.Target) ([]model.VirtualFile, []string, error) {
		return mcp.Collect(ctx, target.Path, virtOpts)
	}

	// Probe the connection up front so a dead server is reported as a
	// connection failure (exit 1) rather than a zero-finding scan.
	probeCtx, cancel := context.WithTimeout(context.Background(), *connectTimeout)
	_, _, probeErr := collector(probeCtx, model.Target{Kind: model.TargetMCP, Name: positional, Path: positional})
	cancel()
	if probeErr != nil {
		return exitUsageError, fmt.Errorf("connect to mcp server %s: %w", positional, probeErr)
	}

	tgt := targets.NewMCPTarget(positional, positional, map[string]string{"scan": strings.Join(scanParts.Values(), ",")})

	opts := pipeline.Options{
		Settings:          settings,
		Catalog:           catalog,
		Sink:              progress.NoopSink{},
		Behavioral:        true,
		ComputeConfidence: *showConfidence || *minConfidence > 0,
		MinConfidence:     *minConfidence,
		MCPCollector:      collector,
		RunID:             time.Now().UTC().Format("20060102T150405.000000000Z"),
	}
	if formatValue == "table" {
		opts.Sink = progress.NewPlainSink(os.Stderr)
	}

	result := pipeline.Scan(context.Background(), []model.Target{tgt}, opts)

	for _, w := range catalogWarnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if err := renderResult(result, formatValue, *output, opts.ComputeConfidence); err != nil {
		return exitUsageError, err
	}
	return report.DecideExitCode(result, failOnValue), nil
}

// runMCPStatic implements `scanguard mcp static`: it virtualizes
// pre-captured tools/prompts/resources/instructions files instead of
// calling a live server (spec §6's static MCP input form).
func runMCPStatic(args []string) (int, error) {
	fs := flag.NewFlagSet("mcp static", flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())

	format := fs.String("format", "table", "Output format: table|json|sarif")
	jsonShortcut := fs.Bool("json", false, "Shorthand for --format json")
	output := fs.String("output", "", "Write the report here instead of stdout")
	failOn := fs.String("fail-on", "", "Exit 2 if any finding is at or above this severity")
	rulesPath := fs.String("rules", "", "Path to a custom rule catalog")
	toolsPath := fs.String("tools", "", "Path to a captured tools/list JSON response")
	promptsPath := fs.String("prompts", "", "Path to a captured prompts/list JSON response")
	resourcesPath := fs.String("resources", "", "Path to a captured resources/list JSON response")
	instructionsPath := fs.String("instructions", "", "Path to a captured server instructions text file")
	host := fs.String("host", "static", "Host label used to build the mcp:// virtual paths")
	showConfidence := fs.Bool("show-confidence", false, "Attach a confidence score to findings")
	minConfidence := fs.Float64("min-confidence", 0, "Drop findings scoring below this confidence")

	if err := fs.Parse(args); err != nil {
		return exitUsageError, err
	}
	if *toolsPath == "" && *promptsPath == "" && *resourcesPath == "" && *instructionsPath == "" {
		return exitUsageError, usageError("usage: scanguard mcp static --tools|--prompts|--resources|--instructions <file>")
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

	settings, err := config.Load()
	if err != nil {
		return exitUsageError, err
	}
	catalog, catalogWarnings, err := loadCatalog(*rulesPath)
	if err != nil {
		return exitUsageError, err
	}

	files, staticWarnings, err := mcp.CollectStatic(mcp.StaticInput{
		Host:             *host,
		ToolsPath:        *toolsPath,
		PromptsPath:      *promptsPath,
		ResourcesPath:    *resourcesPath,
		InstructionsPath: *instructionsPath,
	})
	if err != nil {
		return exitUsageError, err
	}

	collector := func(ctx context.Context, target model.Target) ([]model.VirtualFile, []string, error) {
		return files, staticWarnings, nil
	}
	tgt := targets.NewMCPTarget(*host, *host, map[string]string{"static": "true"})

	opts := pipeline.Options{
		Settings:          settings,
		Catalog:           catalog,
		Sink:              progress.NoopSink{},
		Behavioral:        true,
		ComputeConfidence: *showConfidence || *minConfidence > 0,
		MinConfidence:     *minConfidence,
		MCPCollector:      collector,
		RunID:             time.Now().UTC().Format("20060102T150405.000000000Z"),
	}
	if formatValue == "table" {
		opts.Sink = progress.NewPlainSink(os.Stderr)
	}

	result := pipeline.Scan(context.Background(), []model.Target{tgt}, opts)

	for _, w := range catalogWarnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if err := renderResult(result, formatValue, *output, opts.ComputeConfidence); err != nil {
		return exitUsageError, err
	}
	return report.DecideExitCode(result, failOnValue), nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, usageError(fmt.Sprintf("--header %q must be Name:Value", h))
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out, nil
}
