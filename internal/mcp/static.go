package mcp

import (
	"encoding/json"
	"fmt"
	"os"

	"scanguard/internal/model"
)

// StaticInput points at local JSON files captured ahead of time from an MCP
// server's tools/list, prompts/list, and resources/list responses, plus an
// optional plain-text instructions file — the `mcp static` CLI form (spec
// §6's `--tools|--prompts|--resources|--instructions <file>`) for
// virtualizing a server that cannot be reached live.
type StaticInput struct {
	Host             string
	ToolsPath        string
	PromptsPath      string
	ResourcesPath    string
	InstructionsPath string
}

// CollectStatic projects the given local files into the same virtual file
// tree Collect builds from a live server, so the scanning engine cannot
// tell the two inputs apart. A missing path is simply skipped; a present
// but unparsable file is reported as a warning and skipped.
func CollectStatic(input StaticInput) ([]model.VirtualFile, []string, error) {
	host := input.Host
	if host == "" {
		host = "static"
	}

	var files []model.VirtualFile
	var warnings []string

	if input.InstructionsPath != "" {
		if raw, err := os.ReadFile(input.InstructionsPath); err != nil {
			warnings = append(warnings, "mcp static instructions: "+err.Error())
		} else {
			files = append(files, model.VirtualFile{
				Path:    fmt.Sprintf("mcp://%s/instructions.md", host),
				Content: raw,
			})
		}
	}

	if input.ToolsPath != "" {
		tools, err := readStaticList[toolInfo](input.ToolsPath)
		if err != nil {
			warnings = append(warnings, "mcp static tools: "+err.Error())
		}
		for _, t := range tools {
			seg := safeSegment(t.Name)
			base := fmt.Sprintf("mcp://%s/tools/%s", host, seg)
			files = append(files,
				model.VirtualFile{Path: base + "/description.md", Content: []byte(t.Description)},
				model.VirtualFile{Path: base + "/schema.json", Content: orEmptyJSON(t.InputSchema)},
				model.VirtualFile{Path: base + "/tool.json", Content: mustMarshal(t)},
			)
		}
	}

	if input.PromptsPath != "" {
		prompts, err := readStaticList[promptInfo](input.PromptsPath)
		if err != nil {
			warnings = append(warnings, "mcp static prompts: "+err.Error())
		}
		for _, p := range prompts {
			seg := safeSegment(p.Name)
			base := fmt.Sprintf("mcp://%s/prompts/%s", host, seg)
			files = append(files,
				model.VirtualFile{Path: base + "/description.md", Content: []byte(p.Description)},
				model.VirtualFile{Path: base + "/prompt.json", Content: mustMarshal(p)},
			)
		}
	}

	if input.ResourcesPath != "" {
		resources, err := readStaticList[resourceInfo](input.ResourcesPath)
		if err != nil {
			warnings = append(warnings, "mcp static resources: "+err.Error())
		}
		for _, r := range resources {
			seg := urlSafeBase64(r.URI)
			base := fmt.Sprintf("mcp://%s/resources/%s", host, seg)
			files = append(files, model.VirtualFile{Path: base + "/metadata.json", Content: mustMarshal(r)})
		}
	}

	return files, warnings, nil
}

func readStaticList[T any](path string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
