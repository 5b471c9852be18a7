package heuristics

import (
	"encoding/json"
	"strings"

	"scanguard/internal/model"
)

type browserManifest struct {
	ManifestVersion        int            `json:"manifest_version"`
	Permissions            []string       `json:"permissions"`
	OptionalPermissions    []string       `json:"optional_permissions"`
	HostPermissions        []string       `json:"host_permissions"`
	ExternallyConnectable  map[string]any `json:"externally_connectable"`
	WebAccessibleResources []any          `json:"web_accessible_resources"`
	ContentSecurityPolicy  any            `json:"content_security_policy"`
	UpdateURL              string         `json:"update_url"`
}

// ExtensionManifest inspects a browser extension manifest.json for
// over-broad or dangerous permissions and configuration (spec §4.3).
func ExtensionManifest(path string, content []byte) []model.Finding {
	var m browserManifest
	if err := json.Unmarshal(content, &m); err != nil {
		return nil
	}
	if m.ManifestVersion != 2 && m.ManifestVersion != 3 {
		return nil
	}

	var findings []model.Finding
	add := func(ruleID string, sev model.Severity, message string) {
		findings = append(findings, model.Finding{
			RuleID:   ruleID,
			Severity: sev,
			Message:  message,
			File:     path,
			Category: "extension_manifest",
			Source:   model.SourceHeuristic,
		})
	}

	allPerms := append(append([]string{}, m.Permissions...), m.HostPermissions...)
	for _, p := range allPerms {
		switch {
		case p == "<all_urls>" || strings.Contains(p, "*://*/*") || p == "*":
			add("EXT_MANIFEST_ALL_URLS", model.SeverityHigh, "manifest requests access to all URLs")
		case p == "nativeMessaging":
			add("EXT_MANIFEST_NATIVE_MESSAGING", model.SeverityCritical, "manifest requests native messaging host access")
		case p == "debugger":
			add("EXT_MANIFEST_DEBUGGER", model.SeverityCritical, "manifest requests the debugger permission")
		case p == "webRequestBlocking":
			add("EXT_MANIFEST_WEBREQUEST_BLOCKING", model.SeverityHigh, "manifest requests blocking web request interception")
		case p == "proxy":
			add("EXT_MANIFEST_PROXY", model.SeverityHigh, "manifest requests proxy control")
		case p == "history" || p == "cookies":
			add("EXT_MANIFEST_SENSITIVE_API", model.SeverityHigh, "manifest requests access to "+p)
		}
	}

	if len(m.ExternallyConnectable) > 0 {
		add("EXT_MANIFEST_EXTERNALLY_CONNECTABLE", model.SeverityMedium, "manifest configures externally_connectable")
	}
	if len(m.WebAccessibleResources) > 0 {
		add("EXT_MANIFEST_WEB_ACCESSIBLE_RESOURCES", model.SeverityMedium, "manifest exposes web-accessible resources")
	}

	if csp := cspString(m.ContentSecurityPolicy); csp != "" {
		if strings.Contains(csp, "unsafe-eval") || strings.Contains(csp, "unsafe-inline") {
			add("EXT_MANIFEST_UNSAFE_CSP", model.SeverityHigh, "content security policy allows unsafe-eval or unsafe-inline")
		}
	}

	if strings.HasPrefix(strings.ToLower(m.UpdateURL), "http://") {
		add("EXT_MANIFEST_INSECURE_UPDATE_URL", model.SeverityHigh, "update_url uses plaintext HTTP")
	}

	return findings
}

// cspString normalizes a manifest's content_security_policy field, which
// may be a plain string (MV2) or an object keyed by context (MV3).
func cspString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		var b strings.Builder
		for _, val := range t {
			if s, ok := val.(string); ok {
				b.WriteString(s)
				b.WriteString(" ")
			}
		}
		return b.String()
	default:
		return ""
	}
}
