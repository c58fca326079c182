package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/use-agent/serpcheck/serp"
)

// SharedState carries facts discovered by earlier checks to later ones.
// It lives for one session; only the sponsored URL outlives the process,
// through the side file.
type SharedState struct {
	SponsoredURL string
	// SponsoredAttempted is set once the sponsored lookup ran in this
	// session. From then on the side file is never consulted.
	SponsoredAttempted bool
	SearchAttempted    bool
	SearchPerformed    bool
	VideoLinks         []serp.VideoLink
}

// ResetSponsoredURL marks the sponsored lookup as attempted, forgets any
// URL and removes the side file at path.
func (s *SharedState) ResetSponsoredURL(path string) error {
	s.SponsoredAttempted = true
	s.SponsoredURL = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove side file %s: %w", path, err)
	}
	return nil
}

// SaveSponsoredURL writes u to the side file at path, then to the state.
func (s *SharedState) SaveSponsoredURL(path, u string) error {
	if err := os.WriteFile(path, []byte(u), 0o644); err != nil {
		return fmt.Errorf("write side file %s: %w", path, err)
	}
	s.SponsoredURL = u
	return nil
}

// ResolveSponsoredURL returns the in-memory URL, falling back to the side
// file only when the sponsored lookup did not run in this session. A
// missing file yields "" and no error.
func (s *SharedState) ResolveSponsoredURL(path string) (string, error) {
	if s.SponsoredURL != "" || s.SponsoredAttempted {
		return s.SponsoredURL, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read side file %s: %w", path, err)
	}
	s.SponsoredURL = strings.TrimSpace(string(raw))
	return s.SponsoredURL, nil
}
