package calls

import (
	"sync"
)

// InnerSequence records the calls executed by the most recent run so they can be re-used as a call override source
// or reported as the last run's inputs. It is safe for concurrent use: the campaign driver appends while external
// observers snapshot.
type InnerSequence struct {
	// calls lists the recorded calls in execution order.
	calls []*CallMessage

	// lock provides thread synchronization.
	lock sync.RWMutex
}

// NewInnerSequence creates an empty inner sequence.
func NewInnerSequence() *InnerSequence {
	return &InnerSequence{}
}

// Append records a call at the end of the sequence.
func (s *InnerSequence) Append(call *CallMessage) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls = append(s.calls, call)
}

// At returns the call recorded at the provided index, or nil if the index is out of range.
func (s *InnerSequence) At(index int) *CallMessage {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if index < 0 || index >= len(s.calls) {
		return nil
	}
	return s.calls[index]
}

// Len returns the number of recorded calls.
func (s *InnerSequence) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.calls)
}

// Snapshot returns a cloned copy of the recorded calls, detached from future mutation.
func (s *InnerSequence) Snapshot() []*CallMessage {
	s.lock.RLock()
	defer s.lock.RUnlock()
	snapshot := make([]*CallMessage, len(s.calls))
	for i, call := range s.calls {
		snapshot[i] = call.Clone()
	}
	return snapshot
}

// Reset clears the sequence for the next run.
func (s *InnerSequence) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls = s.calls[:0]
}
