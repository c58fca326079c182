package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// RodPage implements Page on a Rod tab.
type RodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
}

var _ Page = (*RodPage)(nil)

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	if err := p.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *RodPage) WaitIdle(ctx context.Context) error {
	pg := p.page.Context(ctx)
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load: %w", err)
	}
	if err := pg.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	return nil
}

func (p *RodPage) Back(ctx context.Context) error {
	pg := p.page.Context(ctx)
	if err := pg.NavigateBack(); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return p.WaitIdle(ctx)
}

func (p *RodPage) FindFirst(ctx context.Context, set SelectorSet) (Element, error) {
	el, err := p.page.Context(ctx).Element(set.String())
	if err != nil {
		return nil, fmt.Errorf("element %q not found: %w", set.String(), err)
	}
	return &rodElement{el: el}, nil
}

func (p *RodPage) FindAll(ctx context.Context, set SelectorSet) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(set.String())
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", set.String(), err)
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

func (p *RodPage) FindByText(ctx context.Context, selector, text string) (Element, error) {
	el, err := p.page.Context(ctx).ElementR(selector, textPattern(text))
	if err != nil {
		return nil, fmt.Errorf("element %q with text %q not found: %w", selector, text, err)
	}
	return &rodElement{el: el}, nil
}

func (p *RodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("read page url: %w", err)
	}
	return info.URL, nil
}

func (p *RodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

func (p *RodPage) Screenshot(ctx context.Context, path string) error {
	data, err := p.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("screenshot dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Close stops the hijack router and closes the tab.
func (p *RodPage) Close() error {
	if p.router != nil {
		_ = p.router.Stop()
	}
	return p.page.Close()
}

// textPattern is the JS regex matching an element's whole trimmed text.
func textPattern(text string) string {
	return `^\s*` + regexp.QuoteMeta(text) + `\s*$`
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ClickAndWait(ctx context.Context) error {
	el := e.el.Context(ctx)
	return waitNavigation(ctx, el, func() error {
		return el.Click(proto.InputMouseButtonLeft, 1)
	})
}

func (e *rodElement) Input(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e *rodElement) PressEnterAndWait(ctx context.Context) error {
	el := e.el.Context(ctx)
	return waitNavigation(ctx, el, func() error {
		return el.Type(input.Enter)
	})
}

// waitNavigation subscribes to the next load event before act runs, so a
// navigation that commits quickly is not missed. Reads made afterwards see
// the new document instead of the one act was performed on.
func waitNavigation(ctx context.Context, el *rod.Element, act func() error) error {
	wait := el.Page().Context(ctx).WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := act(); err != nil {
		return err
	}
	wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait for navigation: %w", err)
	}
	return nil
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil || v == nil {
		return "", false, err
	}
	return *v, true, nil
}
