package entity

import "sync"

// TxState is a state of a SponsoredTransactionStatus.
type TxState string

const (
	StateIdle                TxState = "idle"
	StateCheckingEligibility TxState = "checking-eligibility"
	StateSponsoredPending    TxState = "sponsored-pending"
	StateFallbackPending     TxState = "fallback-pending"
	StateSucceeded           TxState = "succeeded"
	StateFailed              TxState = "failed"
)

// Terminal reports whether no further transition happens without Reset.
func (s TxState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// StatusSnapshot is an immutable copy of a SponsoredTransactionStatus.
type StatusSnapshot struct {
	State           TxState `json:"state"`
	IsLoading       bool    `json:"isLoading"`
	IsSponsored     bool    `json:"isSponsored"`
	TransactionHash string  `json:"transactionHash,omitempty"`
	Error           string  `json:"error,omitempty"`
	FailedStage     Stage   `json:"failedStage,omitempty"`
}

// SponsoredTransactionStatus tracks one in-flight user action. It must not be
// shared between concurrent actions; the mutex only makes snapshots safe to
// take while the owning action is running.
type SponsoredTransactionStatus struct {
	mu      sync.Mutex
	state   StatusSnapshot
	history []TxState
}

// NewSponsoredTransactionStatus returns a status in the idle state.
func NewSponsoredTransactionStatus() *SponsoredTransactionStatus {
	s := &SponsoredTransactionStatus{}
	s.Reset()
	return s
}

// Reset returns the status to idle from any state.
func (s *SponsoredTransactionStatus) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StatusSnapshot{State: StateIdle}
	s.history = []TxState{StateIdle}
}

// Snapshot returns a copy of the current status.
func (s *SponsoredTransactionStatus) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns the states visited since the last Reset.
func (s *SponsoredTransactionStatus) History() []TxState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TxState, len(s.history))
	copy(out, s.history)
	return out
}

// transition moves to state. Re-entering the current state is recorded once.
func (s *SponsoredTransactionStatus) transition(state TxState, mutate func(*StatusSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.State = state
	if mutate != nil {
		mutate(&s.state)
	}
	if n := len(s.history); n == 0 || s.history[n-1] != state {
		s.history = append(s.history, state)
	}
}

// BeginEligibilityCheck moves the status to checking-eligibility and clears
// the outcome of any earlier action.
func (s *SponsoredTransactionStatus) BeginEligibilityCheck() {
	s.transition(StateCheckingEligibility, func(st *StatusSnapshot) {
		st.IsLoading = true
		st.IsSponsored = false
		st.Error = ""
		st.FailedStage = ""
		st.TransactionHash = ""
	})
}

// BeginSubmission moves the status to sponsored-pending or fallback-pending.
func (s *SponsoredTransactionStatus) BeginSubmission(sponsored bool) {
	state := StateFallbackPending
	if sponsored {
		state = StateSponsoredPending
	}
	s.transition(state, func(st *StatusSnapshot) {
		st.IsLoading = true
		st.IsSponsored = sponsored
	})
}

// Succeed records the accepted transaction hash.
func (s *SponsoredTransactionStatus) Succeed(hash string) {
	s.transition(StateSucceeded, func(st *StatusSnapshot) {
		st.IsLoading = false
		st.TransactionHash = hash
	})
}

// Fail records a terminal failure attributed to stage.
func (s *SponsoredTransactionStatus) Fail(stage Stage, err error) {
	msg := "unknown error occurred"
	if err != nil {
		msg = err.Error()
	}
	s.transition(StateFailed, func(st *StatusSnapshot) {
		st.IsLoading = false
		st.Error = msg
		st.FailedStage = stage
	})
}
