package pipeline

import (
	"sync"

	"scanguard/internal/model"
	"scanguard/internal/scanerr"
)

// state collects findings, warnings, and counters across the concurrent
// workers scanning a single target's files. All methods are safe for
// concurrent use.
type state struct {
	mu        sync.Mutex
	findings  []model.Finding
	warnings  []string
	scanned   int
	maxTotal  int
	budgetHit bool
}

func newState(maxTotal int) *state {
	return &state{maxTotal: maxTotal}
}

// addFindings appends fs, truncating at the global finding budget and
// recording scanerr.ErrFindingBudgetExceeded as a warning the first time
// the budget is hit (spec §4.5, §7).
func (s *state) addFindings(fs []model.Finding) {
	if len(fs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxTotal > 0 {
		remaining := s.maxTotal - len(s.findings)
		if remaining <= 0 {
			s.noteBudgetHitLocked()
			return
		}
		if len(fs) > remaining {
			fs = fs[:remaining]
			s.noteBudgetHitLocked()
		}
	}
	s.findings = append(s.findings, fs...)
}

func (s *state) noteBudgetHitLocked() {
	if s.budgetHit {
		return
	}
	s.budgetHit = true
	s.warnings = append(s.warnings, scanerr.ErrFindingBudgetExceeded.Error())
}

func (s *state) budgetExceeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgetHit
}

func (s *state) addWarning(w string) {
	if w == "" {
		return
	}
	s.mu.Lock()
	s.warnings = append(s.warnings, w)
	s.mu.Unlock()
}

func (s *state) addWarnings(ws []string) {
	for _, w := range ws {
		s.addWarning(w)
	}
}

func (s *state) incScanned() {
	s.mu.Lock()
	s.scanned++
	s.mu.Unlock()
}

func (s *state) scannedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanned
}

func (s *state) findingsSnapshot() []model.Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Finding, len(s.findings))
	copy(out, s.findings)
	return out
}

func (s *state) warningsSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}
