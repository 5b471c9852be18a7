package mcp

import "context"

// resourceContent mirrors one element of resources/read's "contents" array.
type resourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Blob     string `json:"blob"`
}

type readResourceResult struct {
	Contents []resourceContent `json:"contents"`
}

// ReadResource fetches a single resource's text content, truncated to
// maxBytes. allowedMIME gates which MIME types are read at all; an empty
// set admits everything (spec §4.6 resource reading: MIME allowlist plus a
// byte cap, default 1 MiB, enforced by the caller via maxBytes). A resource
// with no text contents (binary-only blob) returns "", "", false, nil.
func (c *Client) ReadResource(ctx context.Context, uri string, allowedMIME map[string]bool, maxBytes int64) (string, string, bool, error) {
	var result readResourceResult
	if err := c.Call(ctx, "resources/read", map[string]any{"uri": uri}, &result); err != nil {
		return "", "", false, err
	}

	var text, mimeType string
	for _, content := range result.Contents {
		if content.Text == "" {
			continue
		}
		if len(allowedMIME) > 0 && !allowedMIME[content.MimeType] {
			continue
		}
		text += content.Text
		if mimeType == "" {
			mimeType = content.MimeType
		}
	}
	if text == "" {
		return "", "", false, nil
	}
	if maxBytes > 0 && int64(len(text)) > maxBytes {
		text = text[:maxBytes]
	}
	return text, mimeType, true, nil
}
