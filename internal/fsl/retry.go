package fsl

// RetryAction identifies which fallback was applied (or none).
type RetryAction int

const (
	RetryNone     RetryAction = iota
	RetryNoRobust             // Rerun bet without -R.
	RetryNoBias               // Rerun fast without -B.
)

const maxAttempts = 3

// RetryState tracks which fallbacks have been applied across retry
// attempts for a single subject. One fallback is applied per attempt; a
// step whose stderr matches no remaining fallback fails for good.
type RetryState struct {
	Attempt int

	Robust      bool // bet -R still enabled.
	BiasCorrect bool // fast -B still enabled.
}

// NewRetryState initializes a RetryState from the configured bet/fast
// parameters.
func NewRetryState(robust, biasCorrect bool) *RetryState {
	return &RetryState{
		Robust:      robust,
		BiasCorrect: biasCorrect,
	}
}

// AdvanceBet inspects stderr from a failed bet run, disables robust mode
// when the output implicates it, and returns the action taken. Returns
// RetryNone when no fallback applies or the attempt limit is reached.
func (s *RetryState) AdvanceBet(stderr string) RetryAction {
	s.Attempt++
	if s.Attempt >= maxAttempts {
		return RetryNone
	}
	if s.Robust && MatchRobustIssue(stderr) {
		s.Robust = false
		return RetryNoRobust
	}
	return RetryNone
}

// AdvanceFast inspects stderr from a failed fast run, disables bias
// correction when the output implicates it, and returns the action taken.
func (s *RetryState) AdvanceFast(stderr string) RetryAction {
	s.Attempt++
	if s.Attempt >= maxAttempts {
		return RetryNone
	}
	if s.BiasCorrect && MatchBiasIssue(stderr) {
		s.BiasCorrect = false
		return RetryNoBias
	}
	return RetryNone
}
