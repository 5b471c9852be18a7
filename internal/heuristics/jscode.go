package heuristics

import (
	"regexp"

	"scanguard/internal/model"
)

var (
	evalOrFunctionPattern   = regexp.MustCompile(`\b(eval\s*\(|new\s+Function\s*\()`)
	createScriptElemPattern = regexp.MustCompile(`createElement\(\s*['"]script['"]\s*\)`)
	srcAssignPattern        = regexp.MustCompile(`\.src\s*=`)

	exfilSourcePattern = regexp.MustCompile(`document\.cookie|localStorage|chrome\.storage|chrome\.cookies`)
	exfilSinkPattern   = regexp.MustCompile(`\bfetch\s*\(|XMLHttpRequest|new\s+WebSocket`)
)

const exfilProximityLines = 80

// JSCodeAnalyzer runs the two string-aware transforms described in spec
// §4.3: a comment-stripped (strings preserved) pass for literal-aware
// checks, and a comment+string-blanked pass (byte offsets preserved) for
// structural checks. stripComments / blankCommentsAndStrings are defined
// further down in this file.
func JSCodeAnalyzer(path string, content []byte, lineOf func(offset int) int) []model.Finding {
	var findings []model.Finding

	structural := blankCommentsAndStrings(content)
	if loc := evalOrFunctionPattern.FindIndex(structural); loc != nil {
		findings = append(findings, model.Finding{
			RuleID:      "CODE_JS_EVAL_OR_FUNCTION",
			Severity:    model.SeverityHigh,
			Message:     "dynamic code execution via eval() or new Function()",
			File:        path,
			Line:        lineOf(loc[0]),
			Category:    "code_execution",
			Source:      model.SourceHeuristic,
			MatchLength: loc[1] - loc[0],
		})
	}

	literalAware := stripComments(content)
	if createScriptElemPattern.Match(literalAware) && srcAssignPattern.Match(literalAware) {
		loc := createScriptElemPattern.FindIndex(literalAware)
		findings = append(findings, model.Finding{
			RuleID:      "CODE_JS_DYNAMIC_SCRIPT_INJECT",
			Severity:    model.SeverityHigh,
			Message:     "dynamically creates a <script> element and assigns its src",
			File:        path,
			Line:        lineOf(loc[0]),
			Category:    "code_execution",
			Source:      model.SourceHeuristic,
			MatchLength: loc[1] - loc[0],
		})
	}

	if f := exfilFinding(path, literalAware, lineOf); f != nil {
		findings = append(findings, *f)
	}

	return findings
}

func exfilFinding(path string, content []byte, lineOf func(offset int) int) *model.Finding {
	sourceMatches := exfilSourcePattern.FindAllIndex(content, -1)
	sinkMatches := exfilSinkPattern.FindAllIndex(content, -1)
	if len(sourceMatches) == 0 || len(sinkMatches) == 0 {
		return nil
	}

	proximate := false
	for _, s := range sourceMatches {
		sLine := lineOf(s[0])
		for _, k := range sinkMatches {
			kLine := lineOf(k[0])
			if abs(sLine-kLine) <= exfilProximityLines {
				proximate = true
				break
			}
		}
		if proximate {
			break
		}
	}

	severity := model.SeverityMedium
	if proximate || (len(sourceMatches) > 1 && len(sinkMatches) > 1) {
		severity = model.SeverityHigh
	}

	firstMatch := sourceMatches[0]
	return &model.Finding{
		RuleID:      "CODE_JS_EXFIL_SOURCES_TO_NETWORK",
		Severity:    severity,
		Message:     "reads a sensitive browser storage source near a network sink",
		File:        path,
		Line:        lineOf(firstMatch[0]),
		Category:    "exfiltration",
		Source:      model.SourceHeuristic,
		MatchLength: firstMatch[1] - firstMatch[0],
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// stripComments removes // and /* */ comments while leaving string
// literals (and everything else) intact, preserving byte offsets by
// replacing removed bytes with spaces (newlines kept as newlines so line
// numbers remain correct).
func stripComments(content []byte) []byte {
	return transform(content, true, false)
}

// blankCommentsAndStrings removes comments and blanks out string-literal
// bodies (quotes kept), preserving byte offsets, for structural pattern
// matching that must not be fooled by a pattern appearing inside a string
// or comment.
func blankCommentsAndStrings(content []byte) []byte {
	return transform(content, true, true)
}

// transform is a small hand-rolled state machine over JS/TS source: it
// tracks whether it is inside a line comment, a block comment, or a
// string/template literal, and blanks the requested spans while always
// preserving the original length and newline positions.
func transform(content []byte, stripCommentsFlag, blankStrings bool) []byte {
	out := make([]byte, len(content))
	copy(out, content)

	const (
		stateNormal = iota
		stateLineComment
		stateBlockComment
		stateString
	)
	state := stateNormal
	var quote byte

	blank := func(i int) {
		if out[i] != '\n' {
			out[i] = ' '
		}
	}

	for i := 0; i < len(content); i++ {
		c := content[i]
		switch state {
		case stateNormal:
			if c == '/' && i+1 < len(content) && content[i+1] == '/' {
				state = stateLineComment
				if stripCommentsFlag {
					blank(i)
				}
				continue
			}
			if c == '/' && i+1 < len(content) && content[i+1] == '*' {
				state = stateBlockComment
				if stripCommentsFlag {
					blank(i)
				}
				continue
			}
			if c == '"' || c == '\'' || c == '`' {
				state = stateString
				quote = c
				continue
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				continue
			}
			if stripCommentsFlag {
				blank(i)
			}
		case stateBlockComment:
			if stripCommentsFlag {
				blank(i)
			}
			if c == '*' && i+1 < len(content) && content[i+1] == '/' {
				if stripCommentsFlag {
					blank(i + 1)
				}
				i++
				state = stateNormal
			}
		case stateString:
			if c == '\\' {
				if blankStrings {
					blank(i)
				}
				if i+1 < len(content) {
					i++
					if blankStrings {
						blank(i)
					}
				}
				continue
			}
			if c == quote {
				state = stateNormal
				continue
			}
			if blankStrings {
				blank(i)
			}
		}
	}
	return out
}
