// Package workspace is the application context of the canvas. It owns the
// connector layer, the adjustment controller, the calendar ring locator and
// the note store, wires their notifications together and serialises every
// canvas mutation through a single loop goroutine.
package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/starford/yearwheel/internal/adjust"
	"github.com/starford/yearwheel/internal/events"
	"github.com/starford/yearwheel/internal/geometry"
	"github.com/starford/yearwheel/internal/notestore"
	"github.com/starford/yearwheel/internal/render"
	"github.com/starford/yearwheel/internal/sse"
	"github.com/starford/yearwheel/internal/storage"
	"github.com/starford/yearwheel/internal/wheel"
)

// ErrClosed is returned by operations on a closed workspace.
var ErrClosed = errors.New("workspace: closed")

// Publisher receives the changes the browser has to see.
type Publisher interface {
	Publish(ev sse.Event)
	PublishKeyed(key string, ev sse.Event)
	PublishCoalesced(key string, ev sse.Event)
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// WithPublisher forwards connector, handle and note changes to p.
func WithPublisher(p Publisher) Option {
	return func(w *Workspace) { w.pub = p }
}

// WithLayout sets the ring layout. Year 0 means the current year.
func WithLayout(l wheel.Layout) Option {
	return func(w *Workspace) { w.layout = l }
}

// WithCanvasSize sets the initial viewport in pixels.
func WithCanvasSize(width, height float64) Option {
	return func(w *Workspace) { w.width, w.height = width, height }
}

// WithCommitThreshold sets the minimum handle displacement that is committed.
func WithCommitThreshold(px float64) Option {
	return func(w *Workspace) { w.threshold = px }
}

// WithStoreOptions passes options to the note store.
func WithStoreOptions(opts ...notestore.Option) Option {
	return func(w *Workspace) { w.storeOpts = append(w.storeOpts, opts...) }
}

// Workspace is safe for concurrent use. Mutating operations run one at a
// time on the loop goroutine.
type Workspace struct {
	logger    *slog.Logger
	pub       Publisher
	layout    wheel.Layout
	width     float64
	height    float64
	threshold float64
	storeOpts []notestore.Option

	store    *notestore.Store
	bus      *events.Bus
	pointer  *events.Pointer
	renderer *render.Renderer
	ctrl     *adjust.Controller
	anchors  *anchors

	reqs     chan func()
	stopCh   chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// anchors lets the controller keep one locator while the ring layout and
// viewport are replaced underneath it.
type anchors struct {
	loc *wheel.Locator
}

func (a *anchors) AnchorPosition(month, day int) (geometry.Point, bool) {
	return a.loc.AnchorPosition(month, day)
}

// New builds a workspace over the vault files and starts its loop.
func New(files storage.Provider, opts ...Option) *Workspace {
	w := &Workspace{
		layout:  wheel.Layout{Radius: 300, Margin: 40},
		width:   1200,
		height:  800,
		reqs:    make(chan func()),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.layout.Year == 0 {
		w.layout.Year = wheel.CurrentYear()
	}

	w.bus = events.NewBus()
	w.pointer = events.NewPointer()
	w.renderer = render.New(w.logger)
	w.anchors = &anchors{loc: wheel.NewLocator(w.layout, w.viewport())}

	storeOpts := append([]notestore.Option{notestore.WithLogger(w.logger)}, w.storeOpts...)
	storeOpts = append(storeOpts,
		notestore.WithEmitter(w.bus),
		notestore.WithChangeHook(w.noteChanged),
	)
	w.store = notestore.New(files, storeOpts...)

	w.ctrl = adjust.New(w.store, w.anchors, w.renderer, w.pointer,
		adjust.WithLogger(w.logger),
		adjust.WithCommitThreshold(w.threshold),
		adjust.WithHandleListener(w),
		adjust.WithEmitter(w.bus),
	)

	// The controller sees every notification before the workspace redraws.
	w.renderer.AddObserver(w.ctrl)
	w.renderer.AddObserver(w)
	w.bus.OnPosition(w.ctrl)
	w.bus.OnPosition(w)
	w.bus.OnLifecycle(w.ctrl)
	w.bus.OnLifecycle(w)

	go w.run()
	return w
}

func (w *Workspace) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.stopCh:
			return
		case fn := <-w.reqs:
			fn()
		}
	}
}

// Do runs fn on the loop goroutine and waits for it. When ctx ends first
// Do returns ctx.Err(); fn may still run.
func (w *Workspace) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}
	select {
	case w.reqs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.stopped:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call runs fn on the loop and returns its results.
func call[T any](ctx context.Context, w *Workspace, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if derr := w.Do(ctx, func() { out, err = fn() }); derr != nil {
		var zero T
		return zero, derr
	}
	return out, err
}

// Close stops the loop and writes pending note changes.
func (w *Workspace) Close() error {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.stopped
	return w.store.Close()
}

// Store returns the note store. Its read methods are safe to call from any
// goroutine.
func (w *Workspace) Store() *notestore.Store {
	return w.store
}

func (w *Workspace) viewport() geometry.Transform {
	return geometry.Fit(w.layout.Side(), w.width, w.height)
}
