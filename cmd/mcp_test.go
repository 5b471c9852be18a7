package cmd

import "testing"

func TestParseHeadersSplitsNameValue(t *testing.T) {
	got, err := parseHeaders([]string{"X-Api-Key: secret", "Accept:application/json"})
	if err != nil {
		t.Fatalf("parseHeaders: %v", err)
	}
	if got["X-Api-Key"] != "secret" || got["Accept"] != "application/json" {
		t.Fatalf("parseHeaders() = %v", got)
	}
}

func TestParseHeadersNilForEmptyInput(t *testing.T) {
	got, err := parseHeaders(nil)
	if err != nil || got != nil {
		t.Fatalf("parseHeaders(nil) = %v, %v, want nil, nil", got, err)
	}
}

func TestParseHeadersRejectsMissingColon(t *testing.T) {
	if _, err := parseHeaders([]string{"not-a-header"}); err == nil {
		t.Fatal("expected error for header without a colon")
	}
}
