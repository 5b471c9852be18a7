package pipeline

import (
	"fmt"
	"os"

	"scanguard/internal/cache"
	"scanguard/internal/engine"
	"scanguard/internal/pathsafe"
	"scanguard/internal/rules"
	"scanguard/internal/scanerr"
)

// workItem is a single scannable unit, either a disk path (read lazily,
// with the size policy applied) or an already in-memory MCP virtual
// file.
type workItem struct {
	path string
	read func() ([]byte, string, error) // content, warning, error
}

func diskWorkItems(paths []string, policy pathsafe.SizePolicy) []workItem {
	items := make([]workItem, 0, len(paths))
	for _, p := range paths {
		p := p
		items = append(items, workItem{path: p, read: func() ([]byte, string, error) {
			return readDiskFile(p, policy)
		}})
	}
	return items
}

// readDiskFile stats path to apply the size policy before reading, so an
// oversized file is rejected without ever being loaded into memory.
func readDiskFile(path string, policy pathsafe.SizePolicy) ([]byte, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}
	ok, streamWarn := policy.Allow(info.Size())
	if !ok {
		return nil, "", &scanerr.FileTooLarge{Path: path, Bytes: info.Size()}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	if streamWarn {
		return content, fmt.Sprintf("file %s exceeds streaming threshold (%d bytes)", path, info.Size()), nil
	}
	return content, "", nil
}

// scanOneFile runs the engine (and, on a miss, records) against content,
// going through the cache first when one is configured. Binary content
// is skipped silently per spec §4.1/§7.
func scanOneFile(path string, content []byte, catalog *rules.Catalog, c *cache.Cache, opts engine.Options) engine.Result {
	if pathsafe.SniffBinary(content) {
		return engine.Result{}
	}
	if c != nil {
		if cached, ok := c.Get(path, content); ok {
			return engine.Result{Findings: cached}
		}
	}
	fileType := rules.FileType(path)
	result := engine.ScanContent(path, fileType, content, catalog, opts)
	if c != nil {
		if err := c.Set(path, content, result.Findings); err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
	}
	return result
}
