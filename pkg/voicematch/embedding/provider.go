package embedding

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/himanishpuri/voicematch/pkg/models"
)

// LoadHook observes every model initialization attempt.
type LoadHook func(backend string, took time.Duration, err error)

type loaded struct {
	model      Model
	concurrent bool
}

// Provider owns the process-wide embedding model. The model is built on
// first use by exactly one caller; concurrent callers wait for that
// attempt. A failed attempt leaves the provider empty so a later call can
// try again.
type Provider struct {
	backend    string
	sampleRate int
	cfg        Config
	factory    Factory

	current atomic.Pointer[loaded]
	initSem chan struct{}

	// inferMu is read-locked for concurrent models, write-locked for
	// serialized ones and by Close.
	inferMu sync.RWMutex

	hookMu sync.RWMutex
	onLoad LoadHook
}

// NewProvider resolves cfg.Backend in the registry. The model itself is
// not loaded until Load or Embed.
func NewProvider(cfg Config) (*Provider, error) {
	f, err := Lookup(cfg.Backend)
	if err != nil {
		return nil, err
	}
	return NewProviderWithFactory(cfg, f), nil
}

// NewProviderWithFactory builds a provider around an explicit factory.
func NewProviderWithFactory(cfg Config, f Factory) *Provider {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	return &Provider{
		backend:    cfg.Backend,
		sampleRate: cfg.SampleRate,
		cfg:        cfg,
		factory:    f,
		initSem:    make(chan struct{}, 1),
	}
}

// Backend returns the configured backend name.
func (p *Provider) Backend() string { return p.backend }

// SampleRate returns the rate waveforms must have.
func (p *Provider) SampleRate() int { return p.sampleRate }

// Loaded reports whether the model is initialized.
func (p *Provider) Loaded() bool { return p.current.Load() != nil }

// OnLoad installs a hook called after every initialization attempt.
func (p *Provider) OnLoad(h LoadHook) {
	p.hookMu.Lock()
	defer p.hookMu.Unlock()
	p.onLoad = h
}

// Dimension returns the model's embedding size, or 0 before loading.
func (p *Provider) Dimension() int {
	if l := p.current.Load(); l != nil {
		return l.model.Dimension()
	}
	return 0
}

// Load initializes the model if needed.
func (p *Provider) Load(ctx context.Context) error {
	_, err := p.get(ctx)
	return err
}

func (p *Provider) get(ctx context.Context) (*loaded, error) {
	if l := p.current.Load(); l != nil {
		return l, nil
	}

	select {
	case p.initSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.initSem }()

	if l := p.current.Load(); l != nil {
		return l, nil
	}

	start := time.Now()
	m, err := p.build()
	p.fireHook(time.Since(start), err)
	if err != nil {
		return nil, models.Wrap(models.KindModelLoad, "load model",
			fmt.Sprintf("embedding model %q failed to load", p.backend), err)
	}

	l := &loaded{model: m}
	if cs, ok := m.(ConcurrencySafe); ok {
		l.concurrent = cs.ConcurrencySafe()
	}
	p.current.Store(l)
	return l, nil
}

func (p *Provider) build() (m Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during model init: %v", r)
		}
	}()
	m, err = p.factory(p.cfg)
	if err == nil && m == nil {
		err = fmt.Errorf("backend %q returned no model", p.backend)
	}
	return m, err
}

func (p *Provider) fireHook(took time.Duration, err error) {
	p.hookMu.RLock()
	h := p.onLoad
	p.hookMu.RUnlock()
	if h != nil {
		h(p.backend, took, err)
	}
}

// Embed returns the embedding of w, loading the model first if needed.
func (p *Provider) Embed(ctx context.Context, w models.Waveform) (models.Embedding, error) {
	const op = "embed"

	l, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	if w.SampleRate() != p.sampleRate || w.Channels() != 1 {
		return nil, models.Errorf(models.KindEmbedding, op,
			"waveform is %d Hz x %d channels, model expects %d Hz mono", w.SampleRate(), w.Channels(), p.sampleRate)
	}
	if w.Len() == 0 {
		return nil, models.Errorf(models.KindEmbedding, op, "waveform is empty")
	}

	if l.concurrent {
		p.inferMu.RLock()
		defer p.inferMu.RUnlock()
	} else {
		p.inferMu.Lock()
		defer p.inferMu.Unlock()
	}
	if p.current.Load() != l {
		return nil, models.Errorf(models.KindInternal, op, "embedding model was closed")
	}

	vec, err := l.model.Embed(w.Samples())
	if err != nil {
		return nil, models.Wrap(models.KindEmbedding, op, "model rejected waveform", err)
	}
	if dim := l.model.Dimension(); len(vec) != dim {
		return nil, models.Errorf(models.KindEmbedding, op, "model returned %d components, want %d", len(vec), dim)
	}
	return models.Embedding(vec), nil
}

// Close releases the model. A later Embed loads it again.
func (p *Provider) Close() error {
	p.initSem <- struct{}{}
	defer func() { <-p.initSem }()

	p.inferMu.Lock()
	defer p.inferMu.Unlock()

	l := p.current.Swap(nil)
	if l == nil {
		return nil
	}
	return l.model.Close()
}
