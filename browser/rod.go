package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/serpcheck/config"
	"github.com/use-agent/serpcheck/models"
	"github.com/ysmood/gson"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	acceptLanguage = "en-US,en;q=0.9"
)

// Browser owns the Chromium process for one test session.
type Browser struct {
	browser *rod.Browser
	cfg     config.BrowserConfig
}

// Launch starts Chromium and connects to it.
func Launch(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("lang"), "en-US")
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCollaboratorError("failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewCollaboratorError("failed to connect to browser", err)
	}
	return &Browser{browser: b, cfg: cfg}, nil
}

// NewPage opens a tab with stealth evasions, an English locale and resource
// blocking installed. They only affect navigations made afterwards.
func (b *Browser) NewPage(ctx context.Context) (*RodPage, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewCollaboratorError("failed to create page", err)
	}

	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: "en-US",
	}); err != nil {
		_ = page.Close()
		return nil, models.NewCollaboratorError("failed to set user agent", err)
	}

	if err := (proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{"Accept-Language": acceptLanguage}),
	}).Call(page); err != nil {
		slog.Warn("failed to set extra headers", "error", err)
	}

	return &RodPage{
		page:   page.Context(ctx),
		router: setupHijack(page, b.cfg.BlockedResourceTypes),
	}, nil
}

// Close kills the browser process.
func (b *Browser) Close() error {
	if err := b.browser.Close(); err != nil {
		return fmt.Errorf("browser: close: %w", err)
	}
	slog.Info("browser closed")
	return nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
