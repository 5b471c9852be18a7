package rules

import _ "embed"

//go:embed default_rules.yaml
var defaultCatalogYAML []byte

// Default loads the catalog bundled into the binary, used whenever a scan
// is not pointed at a custom --rules file.
func Default() (*Catalog, []error) {
	return LoadBytes(defaultCatalogYAML)
}
