package streams

import (
	"errors"
	"testing"

	"phimstream/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		url  string
		want models.SourceKind
	}{
		{"https://cdn.example/hls/index.m3u8", models.SourceKindAdaptive},
		{"https://cdn.example/hls/index.m3u8?token=abc", models.SourceKindAdaptive},
		{"https://embed.example/player/123", models.SourceKindEmbed},
		{"", models.SourceKindEmbed},
	}
	for _, tc := range cases {
		if got := Classify(tc.url); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.url, got, tc.want)
		}
	}
}

func TestResolveAdaptiveFirst(t *testing.T) {
	sel := NewSelector(false)

	resolved, err := sel.Resolve(models.CandidateLink{
		AdaptiveURL: "https://cdn.example/index.m3u8",
		EmbedURL:    "https://embed.example/1",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Kind != models.SourceKindAdaptive {
		t.Errorf("kind = %s, want adaptive", resolved.Kind)
	}
	if resolved.FallbackURL != "https://embed.example/1" {
		t.Errorf("fallback = %q, want embed URL retained", resolved.FallbackURL)
	}
}

func TestResolvePreferEmbed(t *testing.T) {
	sel := NewSelector(true)

	resolved, err := sel.Resolve(models.CandidateLink{
		AdaptiveURL: "https://cdn.example/index.m3u8",
		EmbedURL:    "https://embed.example/1",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Kind != models.SourceKindEmbed {
		t.Errorf("kind = %s, want embed under embed-first policy", resolved.Kind)
	}
	if resolved.URL != "https://embed.example/1" {
		t.Errorf("url = %q", resolved.URL)
	}
	if resolved.FallbackURL != "" {
		t.Errorf("embed source should carry no fallback, got %q", resolved.FallbackURL)
	}
}

func TestResolveSingleSource(t *testing.T) {
	sel := NewSelector(true)

	resolved, err := sel.Resolve(models.CandidateLink{AdaptiveURL: "https://cdn.example/index.m3u8"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Kind != models.SourceKindAdaptive || resolved.FallbackURL != "" {
		t.Errorf("adaptive-only candidate resolved to %+v", resolved)
	}

	resolved, err = sel.Resolve(models.CandidateLink{EmbedURL: "https://embed.example/1"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Kind != models.SourceKindEmbed {
		t.Errorf("embed-only candidate resolved to %+v", resolved)
	}
}

func TestResolveNoPlayableSource(t *testing.T) {
	sel := NewSelector(false)

	if _, err := sel.Resolve(models.CandidateLink{Name: "Tập 1"}); !errors.Is(err, ErrNoPlayableSource) {
		t.Errorf("expected ErrNoPlayableSource, got %v", err)
	}
	if _, err := sel.Resolve(models.CandidateLink{AdaptiveURL: "  "}); !errors.Is(err, ErrNoPlayableSource) {
		t.Errorf("whitespace URLs: expected ErrNoPlayableSource, got %v", err)
	}
}

func TestResolveFirstSkipsEmptyCandidates(t *testing.T) {
	sel := NewSelector(false)

	resolved, err := sel.ResolveFirst([]models.CandidateLink{
		{Name: "dead"},
		{Name: "live", EmbedURL: "https://embed.example/2"},
	})
	if err != nil {
		t.Fatalf("ResolveFirst: %v", err)
	}
	if resolved.URL != "https://embed.example/2" {
		t.Errorf("url = %q, want first playable candidate", resolved.URL)
	}

	if _, err := sel.ResolveFirst(nil); !errors.Is(err, ErrNoPlayableSource) {
		t.Errorf("empty candidate list: expected ErrNoPlayableSource, got %v", err)
	}
}
