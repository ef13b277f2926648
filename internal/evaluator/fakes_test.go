package evaluator

import (
	"context"
	"sync"
	"time"

	"wisefido-guardian/internal/models"
)

type fakeAlerter struct {
	mu       sync.Mutex
	messages []string
	fail     bool
}

func (f *fakeAlerter) Send(_ context.Context, message string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return !f.fail
}

func (f *fakeAlerter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeIndicator struct {
	calls    []string
	alerting bool
}

func (f *fakeIndicator) Warning(time.Duration)         { f.calls = append(f.calls, "warning") }
func (f *fakeIndicator) Emergency(time.Duration)       { f.calls = append(f.calls, "emergency") }
func (f *fakeIndicator) InactiveWarning(time.Duration) { f.calls = append(f.calls, "inactive") }
func (f *fakeIndicator) Normal()                       { f.calls = append(f.calls, "normal") }
func (f *fakeIndicator) Stop()                         { f.calls = append(f.calls, "stop") }
func (f *fakeIndicator) Alerting() bool                { return f.alerting }

func (f *fakeIndicator) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

type fakeSink struct {
	records []models.Record
	err     error
}

func (f *fakeSink) AppendRow(_ context.Context, record models.Record) error {
	f.records = append(f.records, record)
	return f.err
}

func (f *fakeSink) kinds(kind models.RecordKind) []models.Record {
	var out []models.Record
	for _, r := range f.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func stringPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}
