package overlay

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
)

// BrowserRefresher reloads an OBS browser source.
type BrowserRefresher interface {
	RefreshBrowser(ctx context.Context, input string) error
}

// Panel keeps the rendered game info HTML in step with the provider and
// pushes changes to the output file and the OBS browser source.
type Panel struct {
	log      logrus.FieldLogger
	cfg      Config
	renderer *Renderer
	provider gameinfo.Provider
	browser  BrowserRefresher
	sink     *FileSink
	interval time.Duration

	mu   sync.RWMutex
	html []byte

	done chan struct{}
	wg   sync.WaitGroup
}

// NewPanel creates a panel. browser may be nil when OBS is disabled. The
// stored snapshot is re-read every interval so instances that do not poll
// upstream still pick up changes.
func NewPanel(
	log logrus.FieldLogger,
	cfg Config,
	renderer *Renderer,
	provider gameinfo.Provider,
	browser BrowserRefresher,
	interval time.Duration,
) *Panel {
	p := &Panel{
		log:      log.WithField("component", "panel"),
		cfg:      cfg,
		renderer: renderer,
		provider: provider,
		browser:  browser,
		interval: interval,
		done:     make(chan struct{}),
	}

	if cfg.OutputPath != "" {
		p.sink = NewFileSink(cfg.OutputPath)
	}

	return p
}

// Start renders once and then follows provider notifications.
func (p *Panel) Start(ctx context.Context) error {
	p.Update(ctx)

	p.wg.Add(1)

	go p.loop(ctx)

	return nil
}

// Stop stops following the provider.
func (p *Panel) Stop() error {
	close(p.done)
	p.wg.Wait()

	return nil
}

// HTML returns the last rendered panel.
func (p *Panel) HTML() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.html
}

// Update re-renders from the stored snapshot. Output is only written and
// the browser source only refreshed when the HTML changed.
func (p *Panel) Update(ctx context.Context) {
	snapshot, _ := p.provider.Get(ctx)

	html, err := p.renderer.Render(snapshot)
	if err != nil {
		p.log.WithError(err).Error("Failed to render game info panel")

		return
	}

	p.mu.Lock()
	changed := !bytes.Equal(p.html, html)
	p.html = html
	p.mu.Unlock()

	if !changed {
		return
	}

	if p.sink != nil {
		if err := p.sink.Write(html); err != nil {
			p.log.WithError(err).WithField("path", p.sink.Path()).Error("Failed to write game info panel")
		}
	}

	if p.browser != nil && p.cfg.BrowserSource != "" {
		if err := p.browser.RefreshBrowser(ctx, p.cfg.BrowserSource); err != nil {
			p.log.WithError(err).WithField("source", p.cfg.BrowserSource).Warn("Failed to refresh browser source")
		}
	}

	p.log.WithField("found", snapshot.Found()).Debug("Updated game info panel")
}

func (p *Panel) loop(ctx context.Context) {
	defer p.wg.Done()

	interval := p.interval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-p.provider.NotifyChannel():
			p.Update(ctx)
		case <-ticker.C:
			p.Update(ctx)
		}
	}
}
