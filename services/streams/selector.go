// Package streams picks a playable source for an episode and probes
// adaptive-stream manifests for reachability.
package streams

import (
	"errors"
	"strings"

	"phimstream/models"
)

// ErrNoPlayableSource means a candidate carried neither an adaptive-stream
// URL nor an embed URL.
var ErrNoPlayableSource = errors.New("no playable source available")

const manifestExtension = ".m3u8"

// Resolved is a selector decision: the source to play, its kind, and the
// embed URL kept aside for fallback when an adaptive source fails fatally.
type Resolved struct {
	URL         string
	Kind        models.SourceKind
	FallbackURL string
}

// Selector applies the source-preference policy. Adaptive streams are the
// technical default, but many content hosts block the manifest endpoint
// cross-origin, so deployments commonly flip preferEmbed on.
type Selector struct {
	preferEmbed bool
}

func NewSelector(preferEmbed bool) *Selector {
	return &Selector{preferEmbed: preferEmbed}
}

// Classify decides the source family from the URL alone. Anything carrying
// the adaptive-manifest extension is adaptive; everything else plays in an
// embedded frame.
func Classify(url string) models.SourceKind {
	if strings.Contains(url, manifestExtension) {
		return models.SourceKindAdaptive
	}
	return models.SourceKindEmbed
}

// Resolve picks the source for one candidate. When both URLs are present and
// the policy is embed-first, the embed wins outright. Otherwise the adaptive
// URL wins and the embed URL is retained as the fallback.
func (s *Selector) Resolve(c models.CandidateLink) (Resolved, error) {
	adaptive := strings.TrimSpace(c.AdaptiveURL)
	embed := strings.TrimSpace(c.EmbedURL)

	switch {
	case adaptive == "" && embed == "":
		return Resolved{}, ErrNoPlayableSource
	case adaptive == "":
		return Resolved{URL: embed, Kind: models.SourceKindEmbed}, nil
	case embed == "":
		return Resolved{URL: adaptive, Kind: models.SourceKindAdaptive}, nil
	case s.preferEmbed:
		return Resolved{URL: embed, Kind: models.SourceKindEmbed}, nil
	default:
		return Resolved{URL: adaptive, Kind: models.SourceKindAdaptive, FallbackURL: embed}, nil
	}
}

// ResolveFirst resolves the first playable candidate in order. Candidates
// with no usable URL are skipped; only when none is playable does the call
// fail.
func (s *Selector) ResolveFirst(candidates []models.CandidateLink) (Resolved, error) {
	for _, c := range candidates {
		resolved, err := s.Resolve(c)
		if err == nil {
			return resolved, nil
		}
	}
	return Resolved{}, ErrNoPlayableSource
}
