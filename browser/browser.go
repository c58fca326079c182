// Package browser is the UI-automation collaborator. Page and Element are
// the capabilities the step runner consumes; Rod provides them over the
// Chrome DevTools Protocol.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Page is a single browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitIdle blocks until the page has loaded and its DOM has settled.
	WaitIdle(ctx context.Context) error
	Back(ctx context.Context) error
	// FindFirst waits until an element matches any selector in set, bounded
	// by ctx.
	FindFirst(ctx context.Context, set SelectorSet) (Element, error)
	// FindAll returns the elements matching set right now, without waiting.
	FindAll(ctx context.Context, set SelectorSet) ([]Element, error)
	// FindByText waits for an element matching selector whose trimmed text
	// equals text.
	FindByText(ctx context.Context, selector, text string) (Element, error)
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
}

// Element is a node on a Page.
type Element interface {
	Click(ctx context.Context) error
	// ClickAndWait clicks and blocks until the navigation it starts has
	// fired the load event, or ctx is done.
	ClickAndWait(ctx context.Context) error
	Input(ctx context.Context, text string) error
	// PressEnterAndWait submits with Enter and waits like ClickAndWait.
	PressEnterAndWait(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
}

// SelectorSet is an ordered list of alternative CSS selectors. An element
// matches the set when it matches any of them.
type SelectorSet []string

// NewSelectorSet validates every selector with cascadia.
func NewSelectorSet(selectors ...string) (SelectorSet, error) {
	if len(selectors) == 0 {
		return nil, fmt.Errorf("browser: empty selector set")
	}
	for _, s := range selectors {
		if _, err := cascadia.ParseGroup(s); err != nil {
			return nil, fmt.Errorf("browser: invalid selector %q: %w", s, err)
		}
	}
	return SelectorSet(selectors), nil
}

// MustSelectorSet is NewSelectorSet for package-level selector constants.
func MustSelectorSet(selectors ...string) SelectorSet {
	set, err := NewSelectorSet(selectors...)
	if err != nil {
		panic(err)
	}
	return set
}

// String joins the set into a single selector group.
func (s SelectorSet) String() string {
	return strings.Join(s, ", ")
}
