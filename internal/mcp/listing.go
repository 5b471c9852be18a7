package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"scanguard/internal/scanerr"
)

// maxAggregatedResults caps a single ListPaginated call's output
// (spec §4.6 listing: "cap aggregated results at 20,000").
const maxAggregatedResults = 20000

// ListPaginated calls method repeatedly, following result.nextCursor,
// appending every element of result[key] until the cursor is empty,
// repeats the previous one, or the aggregate cap is reached. A -32601 "method not found" is treated
// as "feature absent" and returns an empty, error-free list.
func (c *Client) ListPaginated(ctx context.Context, method, key string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	cursor := ""

	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var page map[string]json.RawMessage
		err := c.Call(ctx, method, params, &page)
		if err != nil {
			if errors.Is(err, scanerr.ErrMcpMethodNotFound) {
				return nil, nil
			}
			return all, err
		}

		if itemsRaw, ok := page[key]; ok {
			var items []json.RawMessage
			if err := json.Unmarshal(itemsRaw, &items); err == nil {
				for _, item := range items {
					all = append(all, item)
					if len(all) >= maxAggregatedResults {
						return all, nil
					}
				}
			}
		}

		nextRaw, ok := page["nextCursor"]
		if !ok {
			return all, nil
		}
		var next string
		if err := json.Unmarshal(nextRaw, &next); err != nil || next == "" {
			return all, nil
		}
		if next == cursor {
			return all, nil
		}
		cursor = next
	}
}
