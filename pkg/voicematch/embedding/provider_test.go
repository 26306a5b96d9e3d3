package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/himanishpuri/voicematch/pkg/models"
)

type fakeModel struct {
	dim        int
	concurrent bool
	out        []float32
	err        error

	active  atomic.Int32
	overlap atomic.Bool
	closed  atomic.Bool
}

func (m *fakeModel) Embed(samples []float32) ([]float32, error) {
	if m.active.Add(1) > 1 {
		m.overlap.Store(true)
	}
	defer m.active.Add(-1)
	time.Sleep(2 * time.Millisecond)
	if m.err != nil {
		return nil, m.err
	}
	if m.out != nil {
		return m.out, nil
	}
	return make([]float32, m.dim), nil
}

func (m *fakeModel) Dimension() int        { return m.dim }
func (m *fakeModel) Close() error          { m.closed.Store(true); return nil }
func (m *fakeModel) ConcurrencySafe() bool { return m.concurrent }

func testWaveform() models.Waveform {
	return models.NewWaveform(make([]float32, 16000), 16000)
}

func TestProviderLoadsOnceUnderConcurrentFirstUse(t *testing.T) {
	var builds atomic.Int32
	model := &fakeModel{dim: 4, concurrent: true}
	p := NewProviderWithFactory(Config{Backend: "fake", SampleRate: 16000}, func(Config) (Model, error) {
		builds.Add(1)
		time.Sleep(20 * time.Millisecond)
		return model, nil
	})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Embed(context.Background(), testWaveform()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Embed: %v", err)
	}

	if n := builds.Load(); n != 1 {
		t.Errorf("factory called %d times, want 1", n)
	}
	if !p.Loaded() || p.Dimension() != 4 {
		t.Errorf("Loaded=%v Dimension=%d", p.Loaded(), p.Dimension())
	}
}

func TestProviderRetriesAfterLoadFailure(t *testing.T) {
	var attempts atomic.Int32
	var hookErrs atomic.Int32
	p := NewProviderWithFactory(Config{Backend: "fake"}, func(Config) (Model, error) {
		if attempts.Add(1) == 1 {
			return nil, errors.New("model file missing")
		}
		return &fakeModel{dim: 2}, nil
	})
	p.OnLoad(func(_ string, _ time.Duration, err error) {
		if err != nil {
			hookErrs.Add(1)
		}
	})

	_, err := p.Embed(context.Background(), testWaveform())
	if models.KindOf(err) != models.KindModelLoad {
		t.Fatalf("first call kind = %s, want model load (%v)", models.KindOf(err), err)
	}
	if !models.KindOf(err).Retryable() {
		t.Error("model load error must be retryable")
	}
	if p.Loaded() {
		t.Fatal("failed load must not leave a model behind")
	}

	if _, err := p.Embed(context.Background(), testWaveform()); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if attempts.Load() != 2 || hookErrs.Load() != 1 {
		t.Errorf("attempts=%d hookErrs=%d", attempts.Load(), hookErrs.Load())
	}
}

func TestProviderSerializesUnsafeModels(t *testing.T) {
	model := &fakeModel{dim: 2}
	p := NewProviderWithFactory(Config{Backend: "fake"}, func(Config) (Model, error) { return model, nil })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Embed(context.Background(), testWaveform())
		}()
	}
	wg.Wait()
	if model.overlap.Load() {
		t.Error("model without ConcurrencySafe ran concurrently")
	}
}

func TestProviderShapeErrors(t *testing.T) {
	model := &fakeModel{dim: 3}
	p := NewProviderWithFactory(Config{Backend: "fake", SampleRate: 16000}, func(Config) (Model, error) { return model, nil })
	ctx := context.Background()

	_, err := p.Embed(ctx, models.NewWaveform(make([]float32, 8000), 8000))
	if models.KindOf(err) != models.KindEmbedding {
		t.Errorf("rate mismatch kind = %s", models.KindOf(err))
	}

	model.out = []float32{1, 2}
	_, err = p.Embed(ctx, testWaveform())
	if models.KindOf(err) != models.KindEmbedding {
		t.Errorf("dimension mismatch kind = %s", models.KindOf(err))
	}

	model.out = nil
	model.err = errors.New("bad tensor")
	_, err = p.Embed(ctx, testWaveform())
	if models.KindOf(err) != models.KindEmbedding {
		t.Errorf("model error kind = %s", models.KindOf(err))
	}
}

func TestProviderCloseAndReload(t *testing.T) {
	var builds atomic.Int32
	var last *fakeModel
	p := NewProviderWithFactory(Config{Backend: "fake"}, func(Config) (Model, error) {
		builds.Add(1)
		last = &fakeModel{dim: 1}
		return last, nil
	})
	if err := p.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := last
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !first.closed.Load() || p.Loaded() {
		t.Fatal("Close should release the model")
	}
	if err := p.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if builds.Load() != 2 {
		t.Errorf("builds = %d, want 2", builds.Load())
	}
}

func TestProviderLoadHonoursContext(t *testing.T) {
	release := make(chan struct{})
	p := NewProviderWithFactory(Config{Backend: "fake"}, func(Config) (Model, error) {
		<-release
		return &fakeModel{dim: 1}, nil
	})

	go func() { _ = p.Load(context.Background()) }()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Load(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("waiting caller should give up with its context, got %v", err)
	}
	close(release)
}

func TestNewProviderUnknownBackend(t *testing.T) {
	if _, err := NewProvider(Config{Backend: "nope"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := NewProvider(DefaultConfig()); err != nil {
		t.Errorf("default backend: %v", err)
	}
}

func TestLookupReportsUnavailableBackend(t *testing.T) {
	MarkUnavailable("gpu-only", "needs a GPU build")

	_, err := NewProvider(Config{Backend: "gpu-only"})
	if err == nil {
		t.Fatal("expected error for unavailable backend")
	}
	if !strings.Contains(err.Error(), "unavailable in this build") || !strings.Contains(err.Error(), "needs a GPU build") {
		t.Errorf("error = %v", err)
	}
	for _, name := range Backends() {
		if name == "gpu-only" {
			t.Error("unavailable backend listed as registered")
		}
	}

	// onnx is either compiled in or reported as unavailable, never unknown.
	if _, err := Lookup(BackendONNX); err != nil && !strings.Contains(err.Error(), "unavailable in this build") {
		t.Errorf("onnx lookup: %v", err)
	}
}
