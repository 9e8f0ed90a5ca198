package preambleSync

import (
	"math"

	"github.com/blinklink/blinklink/pkg/frameExtract"
	"github.com/blinklink/blinklink/pkg/session"
)

type State int

const (
	Searching State = iota
	Locked
	Done
)

func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case Locked:
		return "locked"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Synchronizer is the explicit state machine driving the decode:
// Searching -> Locked -> Done, with Locked -> Searching on a run of
// low-confidence symbols (local resynchronization). Symbol windows advance
// additively from the most recent lock; only the initial offset and one
// effective-rate estimate are derived per lock, drift inside a transmission
// is not corrected per symbol.
type Synchronizer struct {
	p        session.Params
	searcher *Searcher

	state      State
	lock       Lock
	baseIndex  int // sample index symbol baseSymbol starts at
	baseSymbol int
	erasureRun int
	resyncs    int
}

func New(p session.Params) (*Synchronizer, error) {
	searcher, err := NewSearcher(p)
	if err != nil {
		return nil, err
	}
	return &Synchronizer{p: p, searcher: searcher, state: Searching}, nil
}

func (s *Synchronizer) State() State { return s.state }
func (s *Synchronizer) Lock() Lock   { return s.lock }
func (s *Synchronizer) Resyncs() int { return s.resyncs }

// Acquire searches the series for the preamble and transitions to Locked.
func (s *Synchronizer) Acquire(series frameExtract.Series) error {
	lock, ok := s.searcher.Search(series, 0)
	if !ok {
		return &SyncLostError{Reason: "preamble not found in search window"}
	}
	s.adopt(lock, 0)
	return nil
}

// Override installs an externally known lock, skipping the search. Used when
// the operator supplies timing the same way they may supply the ROI.
func (s *Synchronizer) Override(lock Lock) {
	s.adopt(lock, 0)
}

func (s *Synchronizer) adopt(lock Lock, symbol int) {
	s.lock = lock
	s.baseIndex = lock.DataStart
	s.baseSymbol = symbol
	s.erasureRun = 0
	s.state = Locked
}

// SymbolWindow returns the sample bounds of data symbol i. ok is false when
// the window runs past the end of the series, which ends the transmission.
func (s *Synchronizer) SymbolWindow(i, seriesLen int) (start, end int, ok bool) {
	sps := s.lock.SamplesPerSymbol
	start = s.baseIndex + int(math.Round(float64(i-s.baseSymbol)*sps))
	end = s.baseIndex + int(math.Round(float64(i-s.baseSymbol+1)*sps))
	if start < 0 || end > seriesLen || end <= start {
		return start, end, false
	}
	return start, end, true
}

// Observe feeds one symbol decision into the resync counter. It returns true
// when the configured run of consecutive erasures has been hit and the caller
// should attempt a relock. A zero ErasureRunLimit disables resync entirely.
func (s *Synchronizer) Observe(erasure bool) bool {
	if !erasure {
		s.erasureRun = 0
		return false
	}
	s.erasureRun++
	if s.p.ErasureRunLimit <= 0 {
		return false
	}
	return s.erasureRun >= s.p.ErasureRunLimit
}

// Relock drops back to Searching and re-scans the series from the given
// sample position. A retry is consumed whether or not the search succeeds;
// Exhausted reports when the budget is gone. On success the lock is replaced
// and symbol windows continue from nextSymbol at the new data start.
func (s *Synchronizer) Relock(series frameExtract.Series, from, nextSymbol int) bool {
	s.state = Searching
	s.resyncs++
	lock, ok := s.searcher.Search(series, from)
	if !ok {
		s.erasureRun = 0
		s.state = Locked // keep tracking additively from the old lock
		return false
	}
	s.adopt(lock, nextSymbol)
	return true
}

// Exhausted reports whether the resync retry budget has been spent.
func (s *Synchronizer) Exhausted() bool {
	return s.resyncs > s.p.MaxResyncRetries
}

// Finish moves the machine to Done once all expected bits are consumed or the
// input is exhausted.
func (s *Synchronizer) Finish() {
	s.state = Done
}
