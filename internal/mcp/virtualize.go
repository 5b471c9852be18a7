package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"scanguard/internal/model"
)

// VirtualizeOptions configures a single Collect call against one MCP
// server endpoint.
type VirtualizeOptions struct {
	ClientOptions ClientOptions
	ClientName    string
	ClientVersion string

	// ReadResources enables resources/read calls for listed resources;
	// when false, only each resource's metadata is virtualized.
	ReadResources bool
	// AllowedMIME gates which resource MIME types get read; empty admits
	// everything.
	AllowedMIME map[string]bool
	// MaxResourceBytes truncates resource content; 0 uses the 1 MiB
	// default (spec §4.6).
	MaxResourceBytes int64
}

const defaultMaxResourceBytes = 1 << 20

type toolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type promptInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Arguments   json.RawMessage `json:"arguments"`
}

type resourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

// Collect connects to serverURL and projects its tools, prompts,
// resources, and server instructions into a virtual file tree under
// mcp://<host>/... (spec §4.6), ready to be scanned like any on-disk
// target. A per-section failure is recorded as a warning and does not
// abort the other sections.
func Collect(ctx context.Context, serverURL string, opts VirtualizeOptions) ([]model.VirtualFile, []string, error) {
	host := hostOf(serverURL)
	client := NewClient(serverURL, opts.ClientOptions)

	var files []model.VirtualFile
	var warnings []string

	if init, err := client.Initialize(ctx, opts.ClientName, opts.ClientVersion); err != nil {
		warnings = append(warnings, "mcp initialize: "+err.Error())
	} else if init.Instructions != "" {
		files = append(files, model.VirtualFile{
			Path:    fmt.Sprintf("mcp://%s/instructions.md", host),
			Content: []byte(init.Instructions),
		})
	}

	toolFiles, warn := collectTools(ctx, client, host)
	files = append(files, toolFiles...)
	warnings = appendIf(warnings, warn)

	promptFiles, warn := collectPrompts(ctx, client, host)
	files = append(files, promptFiles...)
	warnings = appendIf(warnings, warn)

	resourceFiles, warn := collectResources(ctx, client, host, opts)
	files = append(files, resourceFiles...)
	warnings = appendIf(warnings, warn)

	return files, warnings, nil
}

func collectTools(ctx context.Context, client *Client, host string) ([]model.VirtualFile, string) {
	raws, err := client.ListPaginated(ctx, "tools/list", "tools")
	if err != nil {
		return nil, "mcp tools/list: " + err.Error()
	}
	var files []model.VirtualFile
	for _, raw := range raws {
		var t toolInfo
		if err := json.Unmarshal(raw, &t); err != nil {
			continue
		}
		seg := safeSegment(t.Name)
		base := fmt.Sprintf("mcp://%s/tools/%s", host, seg)
		files = append(files,
			model.VirtualFile{Path: base + "/description.md", Content: []byte(t.Description)},
			model.VirtualFile{Path: base + "/schema.json", Content: orEmptyJSON(t.InputSchema)},
			model.VirtualFile{Path: base + "/tool.json", Content: mustMarshal(t)},
		)
	}
	return files, ""
}

func collectPrompts(ctx context.Context, client *Client, host string) ([]model.VirtualFile, string) {
	raws, err := client.ListPaginated(ctx, "prompts/list", "prompts")
	if err != nil {
		return nil, "mcp prompts/list: " + err.Error()
	}
	var files []model.VirtualFile
	for _, raw := range raws {
		var p promptInfo
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		seg := safeSegment(p.Name)
		base := fmt.Sprintf("mcp://%s/prompts/%s", host, seg)
		files = append(files,
			model.VirtualFile{Path: base + "/description.md", Content: []byte(p.Description)},
			model.VirtualFile{Path: base + "/prompt.json", Content: mustMarshal(p)},
		)
	}
	return files, ""
}

func collectResources(ctx context.Context, client *Client, host string, opts VirtualizeOptions) ([]model.VirtualFile, string) {
	raws, err := client.ListPaginated(ctx, "resources/list", "resources")
	if err != nil {
		return nil, "mcp resources/list: " + err.Error()
	}
	maxBytes := opts.MaxResourceBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResourceBytes
	}
	var files []model.VirtualFile
	for _, raw := range raws {
		var r resourceInfo
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		seg := urlSafeBase64(r.URI)
		base := fmt.Sprintf("mcp://%s/resources/%s", host, seg)
		files = append(files, model.VirtualFile{Path: base + "/metadata.json", Content: mustMarshal(r)})

		if !opts.ReadResources {
			continue
		}
		text, mimeType, ok, err := client.ReadResource(ctx, r.URI, opts.AllowedMIME, maxBytes)
		if err != nil || !ok {
			continue
		}
		if mimeType == "" {
			mimeType = r.MimeType
		}
		files = append(files, model.VirtualFile{
			Path:    base + "/content." + extFromMime(mimeType),
			Content: []byte(text),
		})
	}
	return files, ""
}

func hostOf(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		return safeSegment(serverURL)
	}
	return u.Host
}

var unsafeSegmentChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// safeSegment maps an arbitrary tool/prompt/server name to a filesystem-
// and URL-safe path segment (spec §4.6: non [A-Za-z0-9._-] characters
// become '_', truncated to 120 bytes).
func safeSegment(name string) string {
	s := unsafeSegmentChars.ReplaceAllString(name, "_")
	if len(s) > 120 {
		s = s[:120]
	}
	if s == "" {
		s = "_"
	}
	return s
}

// urlSafeBase64 encodes a resource URI into a path-safe segment (spec
// §4.6: unpadded base64url of the raw URI string).
func urlSafeBase64(uri string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(uri))
}

func extFromMime(mime string) string {
	mime = strings.SplitN(mime, ";", 2)[0]
	switch strings.TrimSpace(mime) {
	case "application/json":
		return "json"
	case "text/markdown":
		return "md"
	case "text/html":
		return "html"
	case "text/x-python":
		return "py"
	case "application/javascript", "text/javascript":
		return "js"
	case "text/plain", "":
		return "txt"
	default:
		return "txt"
	}
}

func orEmptyJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}

func appendIf(warnings []string, warn string) []string {
	if warn == "" {
		return warnings
	}
	return append(warnings, warn)
}
