package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"AIToolNews/internal/domain"
)

func canonical(tool, link string) domain.CanonicalItem {
	return domain.CanonicalItem{
		EnrichedItem: domain.EnrichedItem{
			CandidateItem: domain.CandidateItem{Tool: tool, PrimaryURL: link},
		},
	}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Policy{"": PolicyKeep, "KEEP": PolicyKeep, "drop": PolicyDrop, " search ": PolicySearch} {
		got, err := ParsePolicy(raw)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParsePolicy("rewrite"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestDisplayURLPolicies(t *testing.T) {
	t.Parallel()

	status := "https://x.com/cursor_ai/status/123"
	blog := "https://cursor.com/blog/agents"

	cases := []struct {
		name   string
		policy Policy
		link   string
		want   string
	}{
		{"keep leaves blog", PolicyKeep, blog, blog},
		{"drop keeps status", PolicyDrop, status, status},
		{"drop blanks blog", PolicyDrop, blog, domain.NoURL},
		{"search rewrites blog", PolicySearch, blog, "https://x.com/search?q=Claude+Code"},
		{"missing link untouched", PolicySearch, domain.NoURL, domain.NoURL},
	}

	for _, tc := range cases {
		r := NewResolver(tc.policy, false, nil, nil)
		item := canonical("Claude Code", tc.link)
		if got := r.DisplayURL(context.Background(), item); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
		if item.PrimaryURL != tc.link {
			t.Fatalf("%s: primary URL must not change", tc.name)
		}
	}
}

func TestSuspiciousVerifiesWithHead(t *testing.T) {
	t.Parallel()

	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	r := NewResolver(PolicyDrop, true, server.Client(), nil)
	// Route the status URL to the test server.
	r.client.Transport = rewriteTransport{target: server.URL}

	if !r.Suspicious(context.Background(), "https://x.com/cursor_ai/status/1") {
		t.Fatalf("expected 404 to mark the link suspicious")
	}
	if method != http.MethodHead {
		t.Fatalf("expected HEAD request, got %q", method)
	}
}

type rewriteTransport struct {
	target string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out, err := http.NewRequestWithContext(req.Context(), req.Method, rt.target+req.URL.Path, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultTransport.RoundTrip(out)
}
