package media

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/tomyan/mediactl/internal/bridge"
)

// mockBridge matches calls on the script text alone.
type mockBridge struct {
	mock.Mock
}

func (m *mockBridge) Execute(ctx context.Context, script string) error {
	args := m.Called(script)
	return args.Error(0)
}

func (m *mockBridge) Evaluate(ctx context.Context, script string) (bridge.Scalar, error) {
	args := m.Called(script)
	return args.Get(0).(bridge.Scalar), args.Error(1)
}

// recorder logs every call in order and answers Evaluate from values,
// keyed by script. Unknown scripts evaluate to null.
type recorder struct {
	mu     sync.Mutex
	calls  []string
	values map[string]bridge.Scalar
	errs   map[string]error
}

func newRecorder() *recorder {
	return &recorder{
		values: make(map[string]bridge.Scalar),
		errs:   make(map[string]error),
	}
}

func (r *recorder) Execute(ctx context.Context, script string) error {
	r.log("execute " + script)
	return r.errs[script]
}

func (r *recorder) Evaluate(ctx context.Context, script string) (bridge.Scalar, error) {
	r.log("evaluate " + script)
	if err := r.errs[script]; err != nil {
		return bridge.Scalar{}, err
	}
	return r.values[script], nil
}

func (r *recorder) log(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// fixedIDs hands out the same identifier and counts how often it was asked.
type fixedIDs struct {
	id    string
	asked int
}

func (f *fixedIDs) NextID() string {
	f.asked++
	return f.id
}

// hookClock is a fake clock that runs onSleep after advancing, so tests can
// fire page events "during" the wait.
type hookClock struct {
	*testingclock.FakeClock
	onSleep func(d time.Duration)
}

func newHookClock(onSleep func(time.Duration)) *hookClock {
	return &hookClock{
		FakeClock: testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		onSleep:   onSleep,
	}
}

func (c *hookClock) Sleep(d time.Duration) {
	c.FakeClock.Sleep(d)
	if c.onSleep != nil {
		c.onSleep(d)
	}
}

func hasPrefix(calls []string, prefix string) int {
	n := 0
	for _, c := range calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
