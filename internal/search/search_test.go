package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lauruschat/lauruschat/internal/providers"
)

const pageBody = `<!doctype html>
<html><head><title>Course guide</title></head><body>
<article>
<h1>Hospitality courses</h1>
<p>Our hospitality program covers commercial cookery, food safety and
restaurant management. Students complete industry placements in their
second term and graduate with a nationally recognised qualification.</p>
<p>Intakes run in February, July and October each year. International
students are welcome to apply and should allow extra time for visa
processing before the start of term.</p>
</article>
</body></html>`

type fakeCompletions struct {
	lastModel string
	lastUser  string
	reply     string
	err       error
}

func (f *fakeCompletions) ChatCompletion(_ context.Context, model string, messages []providers.ChatMessage) (string, error) {
	f.lastModel = model
	for _, m := range messages {
		if m.Role == "user" {
			f.lastUser = m.Content
		}
	}
	return f.reply, f.err
}

// newTestPipeline wires a Pipeline against a fake CSE endpoint and a fake
// content site.
func newTestPipeline(t *testing.T, completions *fakeCompletions, cseHandler http.HandlerFunc) (*Pipeline, *httptest.Server) {
	t.Helper()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, pageBody)
	}))
	t.Cleanup(site.Close)

	cse := httptest.NewServer(cseHandler)
	t.Cleanup(cse.Close)

	p := NewPipeline("key", "cse-id", 3, 30000, "gpt-4o", completions)
	p.cseBase = cse.URL
	return p, site
}

func cseResults(site *httptest.Server, n int) string {
	var items []string
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(`{"title":"Result %d","link":"%s/page%d"}`, i, site.URL, i))
	}
	return `{"items":[` + strings.Join(items, ",") + `]}`
}

func TestSearch_HappyPath(t *testing.T) {
	completions := &fakeCompletions{reply: "You can study hospitality. See https://example.edu for details."}

	var p *Pipeline
	var site *httptest.Server
	p, site = newTestPipeline(t, completions, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "hospitality courses" {
			t.Errorf("unexpected query param: %q", got)
		}
		fmt.Fprint(w, cseResults(site, 2))
	})

	out, err := p.Search(context.Background(), "hospitality courses", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != completions.reply {
		t.Errorf("expected summary to be returned, got %q", out)
	}
	if completions.lastModel != "gpt-4o" {
		t.Errorf("unexpected summary model %q", completions.lastModel)
	}
	if !strings.Contains(completions.lastUser, "Query: hospitality courses") {
		t.Errorf("summary prompt missing query: %q", completions.lastUser)
	}
	if !strings.Contains(completions.lastUser, "commercial cookery") {
		t.Error("summary prompt missing scraped page text")
	}
}

func TestSearch_SiteRestriction(t *testing.T) {
	completions := &fakeCompletions{reply: "ok"}

	var p *Pipeline
	var site *httptest.Server
	p, site = newTestPipeline(t, completions, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("siteSearch"); got != "example.edu.au" {
			t.Errorf("expected siteSearch param, got %q", got)
		}
		fmt.Fprint(w, cseResults(site, 1))
	})

	if _, err := p.Search(context.Background(), "fees", "example.edu.au"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearch_CSEFailure(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeCompletions{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := p.Search(context.Background(), "anything", "")
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestSearch_EmptyResults(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeCompletions{}, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	})

	_, err := p.Search(context.Background(), "nothing", "")
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestSearch_SummariserFailure(t *testing.T) {
	completions := &fakeCompletions{err: errors.New("quota exceeded")}

	var p *Pipeline
	var site *httptest.Server
	p, site = newTestPipeline(t, completions, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, cseResults(site, 1))
	})

	_, err := p.Search(context.Background(), "fees", "")
	if !errors.Is(err, ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestScrapeAll_RespectsBudget(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, pageBody)
	}))
	defer site.Close()

	p := NewPipeline("key", "cse", 3, 400, "gpt-4o", &fakeCompletions{})

	hits := []cseItem{
		{Title: "a", Link: site.URL + "/a"},
		{Title: "b", Link: site.URL + "/b"},
		{Title: "c", Link: site.URL + "/c"},
	}
	out := p.scrapeAll(context.Background(), hits)

	total := 0
	for _, r := range out {
		total += len(r.Text)
	}
	if budget := 400 * 95 / 100; total > budget {
		t.Errorf("scraped %d chars, budget %d", total, budget)
	}
	if len(out) == 0 {
		t.Fatal("expected at least one scraped page")
	}
}

func TestCutOnRuneBoundary(t *testing.T) {
	cases := []struct {
		s    string
		n    int
		want string
	}{
		{"café courses", 20, "café courses"}, // under the limit, untouched
		{"café", 5, "café"},                  // exact byte length
		{"café", 4, "caf"},                   // would split the é
		{"café", 3, "caf"},
		{"日本語", 4, "日"}, // 3-byte runes
		{"日本語", 3, "日"},
		{"日本語", 2, ""},
		{"", 4, ""},
	}
	for _, tc := range cases {
		got := cutOnRuneBoundary(tc.s, tc.n)
		if got != tc.want {
			t.Errorf("cutOnRuneBoundary(%q, %d) = %q, want %q", tc.s, tc.n, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("cutOnRuneBoundary(%q, %d) produced invalid UTF-8", tc.s, tc.n)
		}
	}
}

func TestScrapeAll_TruncationKeepsValidUTF8(t *testing.T) {
	article := strings.Repeat("Café hospitalité études supérieures. ", 40)
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><head><title>t</title></head><body><article><p>%s</p></article></body></html>", article)
	}))
	defer site.Close()

	// Small budgets land the cut at arbitrary byte offsets inside the
	// accented words.
	for _, maxChars := range []int{50, 51, 52, 53} {
		p := NewPipeline("key", "cse", 1, maxChars, "gpt-4o", &fakeCompletions{})
		out := p.scrapeAll(context.Background(), []cseItem{{Title: "a", Link: site.URL + "/a"}})
		if len(out) == 0 {
			t.Fatalf("maxChars=%d: expected a scraped page", maxChars)
		}
		for _, r := range out {
			if !utf8.ValidString(r.Text) {
				t.Errorf("maxChars=%d: truncated text is not valid UTF-8: %q", maxChars, r.Text)
			}
		}
	}
}

func TestScrapeAll_SkipsFailedPages(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/dead") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, pageBody)
	}))
	defer site.Close()

	p := NewPipeline("key", "cse", 3, 30000, "gpt-4o", &fakeCompletions{})

	out := p.scrapeAll(context.Background(), []cseItem{
		{Title: "dead", Link: site.URL + "/dead"},
		{Title: "live", Link: site.URL + "/live"},
	})
	if len(out) != 1 {
		t.Fatalf("expected 1 scraped page, got %d", len(out))
	}
	if out[0].Title != "live" {
		t.Errorf("unexpected page kept: %q", out[0].Title)
	}
}
