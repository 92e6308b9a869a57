// Package fetcher loads a list for one page and guarantees that only the
// latest submission's result is applied.
package fetcher

import (
	"context"
	"errors"
	"sync"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrSuperseded is returned by a load whose result was discarded because a
// newer load (or a session change) replaced it.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Result is one completed load.
type Result struct {
	Items []domain.Row
	// Total is the backend total count for server-side pagination, -1 if unknown.
	Total int
}

// LoadFunc performs the network call for a filter.
type LoadFunc func(ctx context.Context, f *domain.Filter) (Result, error)

// Fetcher runs the Idle -> Loading -> Success|Error cycle of one list page.
// Each Load cancels the previous in-flight load; a result is applied only if
// its generation is still the latest.
type Fetcher struct {
	name string
	load LoadFunc

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	state      domain.FetchState
	result     Result
	filter     *domain.Filter
	lastLoad   LoadFunc
	err        error
}

func New(name string, load LoadFunc) *Fetcher {
	return &Fetcher{name: name, load: load, state: domain.StateIdle, result: Result{Total: -1}}
}

// Load fetches the collection for f. A nil filter clears the results without
// a network call.
func (f *Fetcher) Load(ctx context.Context, filter *domain.Filter) (Result, error) {
	return f.LoadWith(ctx, filter, f.load)
}

// LoadWith is Load with a one-off loader, such as one bound to a server-side
// page. It shares the generation guard with Load; Reload repeats it.
func (f *Fetcher) LoadWith(ctx context.Context, filter *domain.Filter, load LoadFunc) (Result, error) {
	if load == nil {
		load = f.load
	}

	f.mu.Lock()
	f.generation++
	gen := f.generation
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}

	if filter == nil {
		f.state = domain.StateIdle
		f.result = Result{Total: -1}
		f.filter = nil
		f.err = nil
		f.mu.Unlock()
		return Result{Items: []domain.Row{}, Total: -1}, nil
	}

	loadCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.state = domain.StateLoading
	f.filter = filter.Clone()
	f.lastLoad = load
	f.mu.Unlock()

	res, err := load(loadCtx, filter.Clone())

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		cancel()
		log.Debug().Str("report", f.name).Uint64("generation", gen).Msg("discarding superseded load")
		return Result{}, ErrSuperseded
	}
	f.cancel = nil
	cancel()

	if errors.Is(err, ErrSuperseded) {
		f.state = domain.StateIdle
		return Result{}, err
	}
	if err != nil {
		f.state = domain.StateError
		f.err = err
		return Result{}, err
	}

	if res.Items == nil {
		res.Items = []domain.Row{}
	}
	f.state = domain.StateSuccess
	f.result = res
	f.err = nil
	return res, nil
}

// Invalidate forgets the stored result so the next read must load again.
func (f *Fetcher) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = Result{Total: -1}
	if f.state == domain.StateSuccess {
		f.state = domain.StateIdle
	}
}

// Reload repeats the last submitted filter, used after a mutation.
func (f *Fetcher) Reload(ctx context.Context) (Result, error) {
	f.mu.Lock()
	last := f.filter.Clone()
	load := f.lastLoad
	f.mu.Unlock()
	return f.LoadWith(ctx, last, load)
}

// State reports the outcome of the last load. Success and Error stay readable
// until the next load; a reset, an invalidation of a successful result or a
// superseded load returns the fetcher to Idle.
func (f *Fetcher) State() domain.FetchState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Items returns the last applied collection.
func (f *Fetcher) Items() []domain.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result.Items
}

func (f *Fetcher) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Filter returns the last submitted filter.
func (f *Fetcher) Filter() *domain.Filter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.Clone()
}
