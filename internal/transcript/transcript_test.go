package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tripleee/sloshy/pkg/logx"
)

const feedsOK = `<html><body>
<div id="content">Currently no feeds are being posted into this room.</div>
</body></html>`

const feedsFrozen = `<html><body>
<div id="content">Because this room is frozen, no feeds are
being posted into this room.</div>
</body></html>`

func transcriptPageHTML(title string, prev string, monologues ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>")
	b.WriteString(title)
	b.WriteString("</title></head><body><div id=\"main\"><div id=\"transcript\">")
	for _, m := range monologues {
		b.WriteString(m)
	}
	b.WriteString("</div>")
	if prev != "" {
		fmt.Fprintf(&b, `<a rel="prev" href="%s">older</a>`, prev)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func monologue(userHref, userName, timestamp, content string) string {
	return fmt.Sprintf(`<div class="monologue">
<div class="signature"><div class="username"><a href="%s">%s</a></div></div>
<div class="messages"><div class="timestamp">%s</div>
<div class="message"><div class="content">%s</div></div></div>
</div>`, userHref, userName, timestamp, content)
}

func testClient(t *testing.T, handler http.Handler) (*Client, string) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	c := NewClient(Options{RetryMax: -1, PageInterval: time.Millisecond}, logx.Nop())
	c.scheme = "http"
	return c, strings.TrimPrefix(ts.URL, "http://")
}

func TestLatestNewestFirst(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms/info/6/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedsOK)
	})
	mux.HandleFunc("/transcript/6", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, transcriptPageHTML("Python - 2024-01-05", "",
			monologue("/users/123/alice", "alice", "9:15 AM", "morning"),
			monologue("/users/456/bob", "bob", "3:45 PM", "afternoon"),
			monologue("/users/-2/feed", "Feed", "11:59 PM", "rss noise"),
		))
	})

	c, host := testClient(t, mux)
	snap, err := c.Latest(context.Background(), host, 6)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	want := time.Date(2024, 1, 5, 15, 45, 0, 0, time.UTC)
	if !snap.When.Equal(want) {
		t.Errorf("When = %v, want %v (feed message must not count)", snap.When, want)
	}
	if snap.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", snap.MessageCount)
	}
}

func TestLatestWalksPrevPages(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms/info/291/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedsOK)
	})
	mux.HandleFunc("/transcript/291", func(w http.ResponseWriter, r *http.Request) {
		// "no messages today" page, linking back
		fmt.Fprint(w, transcriptPageHTML("Rebol - 2024-01-05", "/transcript/291/2023/12/20"))
	})
	mux.HandleFunc("/transcript/291/2023/12/20", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, transcriptPageHTML("Rebol - 2023-12-20", "",
			monologue("/users/9/carol", "carol", "1:00 PM", "last words"),
		))
	})

	c, host := testClient(t, mux)
	snap, err := c.Latest(context.Background(), host, 291)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	want := time.Date(2023, 12, 20, 13, 0, 0, 0, time.UTC)
	if !snap.When.Equal(want) {
		t.Errorf("When = %v, want %v", snap.When, want)
	}
	if snap.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", snap.MessageCount)
	}
}

func TestLatestEmptyRoom(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms/info/7/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedsOK)
	})
	mux.HandleFunc("/transcript/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, transcriptPageHTML("Ghost Town - 2024-01-05", ""))
	})

	c, host := testClient(t, mux)
	snap, err := c.Latest(context.Background(), host, 7)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !snap.When.IsZero() {
		t.Errorf("empty room should have zero When, got %v", snap.When)
	}
	if snap.MessageCount != 0 {
		t.Errorf("MessageCount = %d, want 0", snap.MessageCount)
	}
}

func TestLatestFrozenRoom(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/rooms/info/42/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedsFrozen)
	})

	c, host := testClient(t, mux)
	_, err := c.Latest(context.Background(), host, 42)
	if !errors.Is(err, ErrFrozenOrDeleted) {
		t.Fatalf("expected ErrFrozenOrDeleted, got %v", err)
	}
}

func TestLatestUnreachableServer(t *testing.T) {
	t.Parallel()
	c := NewClient(Options{RetryMax: -1, Timeout: time.Second}, logx.Nop())
	c.scheme = "http"
	_, err := c.Latest(context.Background(), "127.0.0.1:1", 6)
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "thaw" {
			fmt.Fprint(w, `<html><body><div id="content">
<div class="messages"><a href="/transcript/message/99#99">link</a></div>
</div></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><div id="content">
0 messages found
</div></body></html>`)
	})

	c, host := testClient(t, mux)

	got, err := c.Search(context.Background(), host, 6, 123, "thaw")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if want := "http://" + host + "/transcript/message/99#99"; got != want {
		t.Errorf("Search = %q, want %q", got, want)
	}

	got, err = c.Search(context.Background(), host, 6, 123, "no such phrase")
	if err != nil {
		t.Fatalf("Search (no match): %v", err)
	}
	if got != "" {
		t.Errorf("Search = %q, want empty on no match", got)
	}
}

func TestParseUsernameVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		html   string
		wantID int64
	}{
		{
			name:   "profile link",
			html:   `<div class="username"><a href="/users/3735529/smokedetector">SmokeDetector</a></div>`,
			wantID: 3735529,
		},
		{
			name:   "feed poster",
			html:   `<div class="username"><a href="/users/-2/feed">Feed</a></div>`,
			wantID: -2,
		},
		{
			name:   "deleted account",
			html:   `<div class="username">user12716323</div>`,
			wantID: 12716323,
		},
		{
			name:   "bare name",
			html:   `<div class="username">somebody</div>`,
			wantID: 0,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := newPageDoc(strings.NewReader("<html><body>" + tt.html + "</body></html>"))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			id, _ := parseUsername(doc.doc.Find("div.username").First())
			if id != tt.wantID {
				t.Errorf("id = %d, want %d", id, tt.wantID)
			}
		})
	}
}

func TestParseTranscriptPageTitleVariants(t *testing.T) {
	t.Parallel()
	doc, err := newPageDoc(strings.NewReader(
		transcriptPageHTML("Python - 2024-01-05 (page 1 of 2)", "/transcript/6/2024/1/4")))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tp, err := parseTranscriptPage(doc)
	if err != nil {
		t.Fatalf("parseTranscriptPage: %v", err)
	}
	if !tp.date.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", tp.date)
	}
	if tp.prevPath != "/transcript/6/2024/1/4" {
		t.Errorf("prevPath = %q", tp.prevPath)
	}
}
