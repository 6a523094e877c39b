// Package page drives the catalog page: it resolves the requested page,
// takes a hand-off payload from the transfer store when one exists, fetches
// otherwise, and publishes state changes to its observers.
package page

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"storefront/internal/catalog"
	"storefront/internal/logging"
	"storefront/internal/transfer"
)

// Mode is the controller's capability flag.
type Mode int

const (
	// ModeServer renders one request; fetched payloads are written to the
	// transfer store for the hydration session.
	ModeServer Mode = iota
	// ModeClient is a long-lived session that follows history changes.
	ModeClient
)

func (m Mode) String() string {
	if m == ModeServer {
		return "server"
	}
	return "client"
}

var ErrAlreadyMounted = errors.New("page: controller already mounted")

type Fetcher interface {
	FetchSection(ctx context.Context, sectionCode, page string) (*catalog.Payload, error)
}

// TitleSink receives the document title.
type TitleSink interface {
	SetTitle(title string)
}

// State is the page's working state. Items and NavParams are nil until a
// payload arrives and after a navigation reset. Loading stays true after a
// failed fetch; Err says why.
type State struct {
	Section   *catalog.Section
	Items     []catalog.Item
	NavParams *catalog.NavParams
	Loading   bool
	Err       error
}

func (s State) Title() string {
	if s.Section == nil {
		return ""
	}
	return s.Section.Name
}

type Options struct {
	Mode        Mode
	SectionCode string
	// RoutePath is the mounted route's path; defaults to "/<SectionCode>".
	RoutePath string
	Fetcher   Fetcher
	// Transfer may be nil, which disables the hand-off.
	Transfer transfer.Store
	Title    TitleSink
}

type Controller struct {
	mode      Mode
	code      string
	routePath string
	fetcher   Fetcher
	store     transfer.Store
	title     TitleSink

	mu         sync.Mutex
	state      State
	gen        uint64
	mounted    bool
	closed     bool
	baseCtx    context.Context
	baseCancel context.CancelFunc
	cancel     context.CancelFunc
	unlisten   func()
	observers  []func(State)

	notifyMu sync.Mutex
	wg       sync.WaitGroup
}

func New(opts Options) *Controller {
	if opts.Fetcher == nil {
		panic("page: fetcher cannot be nil")
	}
	route := opts.RoutePath
	if route == "" {
		route = "/" + opts.SectionCode
	}
	return &Controller{
		mode:      opts.Mode,
		code:      opts.SectionCode,
		routePath: route,
		fetcher:   opts.Fetcher,
		store:     opts.Transfer,
		title:     opts.Title,
		state:     State{Loading: true},
	}
}

func (c *Controller) Mode() Mode { return c.mode }

func (c *Controller) SectionCode() string { return c.code }

// Subscribe registers fn to receive the current state after every change.
// Calls are serialized.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RenderForRequest resolves loc's page and loads it before returning.
func (c *Controller) RenderForRequest(ctx context.Context, loc Location) (State, error) {
	err := c.LoadPage(ctx, PageNumber(loc))
	return c.State(), err
}

// LoadPage loads page synchronously and supersedes any load in flight.
func (c *Controller) LoadPage(ctx context.Context, page string) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	return c.load(ctx, gen, page)
}

// Mount loads the history's current page. In client mode it also follows
// history changes on the same route until Unmount.
func (c *Controller) Mount(ctx context.Context, h History) error {
	c.mu.Lock()
	if c.mounted || c.closed {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.mounted = true
	c.baseCtx, c.baseCancel = context.WithCancel(ctx)
	base := c.baseCtx
	c.mu.Unlock()

	if c.mode == ModeClient {
		unlisten := h.Listen(c.navigate)
		c.mu.Lock()
		c.unlisten = unlisten
		c.mu.Unlock()
	}
	return c.LoadPage(base, PageNumber(h.Location()))
}

// Unmount detaches the history listener and cancels work in flight. No
// state change happens afterwards.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unlisten := c.unlisten
	c.unlisten = nil
	if c.cancel != nil {
		c.cancel()
	}
	if c.baseCancel != nil {
		c.baseCancel()
	}
	c.mu.Unlock()

	if unlisten != nil {
		unlisten()
	}
	c.wg.Wait()
}

// Wait blocks until navigation loads started so far have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) navigate(loc Location) {
	if !samePath(loc.Path, c.routePath) {
		return
	}

	c.mu.Lock()
	if !c.mounted || c.closed {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel
	c.state.Items = nil
	c.state.NavParams = nil
	c.state.Loading = true
	c.state.Err = nil
	c.wg.Add(1)
	c.mu.Unlock()

	c.notify()

	go func() {
		defer c.wg.Done()
		defer cancel()
		_ = c.load(ctx, gen, PageNumber(loc))
	}()
}

func (c *Controller) load(ctx context.Context, gen uint64, page string) error {
	if page == "" {
		page = "1"
	}
	log := logging.From(ctx).With("section", c.code, "page", page, "mode", c.mode.String())
	key := transfer.SectionKey(c.code, page)

	if c.store != nil {
		raw, err := c.store.Take(ctx, key)
		switch {
		case err == nil:
			var p catalog.Payload
			derr := json.Unmarshal(raw, &p)
			if derr == nil {
				derr = p.Validate()
			}
			if derr == nil {
				log.Debug("transfer.hit", "key", key)
				c.apply(gen, &p, false)
				return nil
			}
			log.Warn("transfer.decode", "key", key, "err", derr)
		case errors.Is(err, transfer.ErrNotFound):
		default:
			log.Warn("transfer.take", "key", key, "err", err)
		}
	}

	p, err := c.fetcher.FetchSection(ctx, c.code, page)
	if err != nil {
		c.fail(gen, err)
		return err
	}
	if !c.current(gen) {
		return nil
	}

	if c.mode == ModeServer && c.store != nil {
		raw, err := json.Marshal(p)
		if err == nil {
			err = c.store.Set(ctx, key, raw)
		}
		if err != nil {
			log.Warn("transfer.set", "key", key, "err", err)
		}
	}
	c.apply(gen, p, true)
	return nil
}

func (c *Controller) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen && !c.closed
}

func (c *Controller) apply(gen uint64, p *catalog.Payload, setTitle bool) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	c.state = State{
		Section:   p.Section,
		Items:     p.Items,
		NavParams: p.NavParams,
		Loading:   false,
	}
	c.mu.Unlock()

	if setTitle && c.title != nil {
		c.title.SetTitle(p.Section.Name)
	}
	c.notify()
}

func (c *Controller) fail(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	c.state.Loading = true
	c.state.Err = err
	c.mu.Unlock()
	c.notify()
}

// notify delivers the latest state, so observers never see an older state
// after a newer one.
func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	st := c.state
	obs := append([]func(State){}, c.observers...)
	c.mu.Unlock()

	for _, fn := range obs {
		fn(st)
	}
}
