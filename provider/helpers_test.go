package provider

import (
	"context"
	"strings"
	"sync"
)

var testProvider = Provider{ID: 1, Name: "Acme VPN", BinPath: "/usr/bin/acmevpn", Parser: "csv"}

type call struct {
	bin  string
	args []string
}

// fakeRunner answers invocations from a table keyed by the joined argv.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	outputs map[string][]string
	errs    map[string]error
	fn      func(args []string) (*Output, error)
}

func (f *fakeRunner) Run(ctx context.Context, bin string, args ...string) (*Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{bin: bin, args: args})
	fn := f.fn
	key := strings.Join(args, " ")
	lines := f.outputs[key]
	err := f.errs[key]
	f.mu.Unlock()

	if fn != nil {
		return fn(args)
	}
	return &Output{Lines: lines}, err
}

func (f *fakeRunner) invocations() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeRunner) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.Join(c.args, " ") == key {
			n++
		}
	}
	return n
}

func newTestAdapter(r Runner, overrides Table, settle SettleConfig) *Adapter {
	return New(Options{Overrides: overrides, Runner: r, Settle: settle})
}
