package testutil

import "sync"

// Call is one recorded adapter call.
type Call struct {
	System string // "store" or "index"
	Op     string
	Key    string
}

// CallLog records adapter calls in order. Share one log between a
// RecordingStore and a RecordingIndex to assert cross-system ordering.
type CallLog struct {
	mu    sync.Mutex
	calls []Call
}

func NewCallLog() *CallLog {
	return &CallLog{}
}

func (l *CallLog) add(c Call) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

// Calls returns a copy of the recorded calls.
func (l *CallLog) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Call(nil), l.calls...)
}

// For returns the calls made to one system.
func (l *CallLog) For(system string) []Call {
	var out []Call
	for _, c := range l.Calls() {
		if c.System == system {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets all recorded calls.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// failures maps "op key" (or "op *") to an injected error.
type failures struct {
	mu   sync.Mutex
	errs map[string]error
}

func (f *failures) set(op, key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errs == nil {
		f.errs = make(map[string]error)
	}
	if err == nil {
		delete(f.errs, op+" "+key)
		return
	}
	f.errs[op+" "+key] = err
}

func (f *failures) get(op, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[op+" "+key]; ok {
		return err
	}
	return f.errs[op+" *"]
}
