// Package transcript is a read-only client for chat room transcripts.
//
// It answers one question per room and run: when did somebody last say
// something in here? Pages are walked newest-first, feed messages are
// ignored, and nothing is ever cached across runs.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/tripleee/sloshy/pkg/logx"
)

// ErrFrozenOrDeleted reports a room whose info page says it is frozen or
// deleted. Posting into such a room cannot help it.
var ErrFrozenOrDeleted = errors.New("room is frozen or deleted")

// Snapshot is the per-room, per-run activity record. A zero When means the
// room has no qualifying messages at all ("infinitely stale").
type Snapshot struct {
	When         time.Time
	MessageCount int
	URL          string
}

// Options makes the transport behavior explicit and injectable. The retry
// policy lives in the HTTP client itself (bounded retries with backoff on
// 429/5xx); the prober adds none of its own.
type Options struct {
	Timeout      time.Duration // per-request; default 30s
	RetryMax     int           // transport-level retries; default 5
	PageInterval time.Duration // pacing between transcript pages; default 1s
	MaxPages     int           // how far back to walk; default 30
	UserAgent    string
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	if out.RetryMax < 0 {
		out.RetryMax = 0
	} else if out.RetryMax == 0 {
		out.RetryMax = 5
	}
	if out.PageInterval <= 0 {
		out.PageInterval = time.Second
	}
	if out.MaxPages <= 0 {
		out.MaxPages = 30
	}
	if out.UserAgent == "" {
		out.UserAgent = DefaultUserAgent
	}
	return out
}

// DefaultUserAgent identifies the bot to the chat service.
const DefaultUserAgent = "SloshyBot/2.0 (+https://github.com/tripleee/sloshy)"

type Client struct {
	http    *http.Client
	log     logx.Logger
	limiter *rate.Limiter
	opts    Options

	// scheme is overridable so tests can point the client at a local
	// httptest server.
	scheme string
}

func NewClient(opts Options, log logx.Logger) *Client {
	opts = opts.withDefaults()

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.Logger = nil
	rc.HTTPClient.Timeout = opts.Timeout

	interval := rate.Every(opts.PageInterval)
	return &Client{
		http:    rc.StandardClient(),
		log:     log,
		limiter: rate.NewLimiter(interval, 1),
		opts:    opts,
		scheme:  "https",
	}
}

// Latest fetches the room's most recent qualifying activity.
//
// It walks transcript pages backwards (following rel="prev") until it has
// found the newest non-feed message and seen enough messages to judge
// traffic, or until MaxPages is exhausted. Feed and system messages
// (negative user ids) do not count as activity.
func (c *Client) Latest(ctx context.Context, server string, roomID int) (Snapshot, error) {
	if err := c.CheckFrozenOrDeleted(ctx, server, roomID); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{}
	url := fmt.Sprintf("%s://%s/transcript/%d", c.scheme, server, roomID)
	for page := 0; page < c.opts.MaxPages; page++ {
		if page > 0 {
			// Pace fallback fetches; the first page is free.
			if err := c.limiter.Wait(ctx); err != nil {
				return Snapshot{}, err
			}
		}
		c.log.Debug("fetching transcript page",
			logx.String("url", url), logx.Int("page", page))

		doc, err := c.get(ctx, url)
		if err != nil {
			return Snapshot{}, fmt.Errorf("transcript %s: %w", url, err)
		}

		tp, err := parseTranscriptPage(doc)
		if err != nil {
			return Snapshot{}, fmt.Errorf("transcript %s: %w", url, err)
		}

		for i := len(tp.messages) - 1; i >= 0; i-- {
			m := tp.messages[i]
			if m.userID < 0 {
				continue // feed message, not actual activity
			}
			snap.MessageCount++
			if snap.When.IsZero() {
				snap.When = m.when
				snap.URL = url
			}
		}

		// Stop once the newest message is known and the room is clearly not
		// low-traffic; keep walking otherwise so the count is meaningful.
		if !snap.When.IsZero() && snap.MessageCount >= lowTrafficProbeLimit {
			return snap, nil
		}
		if tp.prevPath == "" {
			return snap, nil
		}
		url = fmt.Sprintf("%s://%s%s", c.scheme, server, tp.prevPath)
	}
	return snap, nil
}

// lowTrafficProbeLimit is how many messages the walk tries to observe before
// declaring the count final. Matches the decision layer's low-traffic limit.
const lowTrafficProbeLimit = 10

func (c *Client) get(ctx context.Context, url string) (*pageDoc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return newPageDoc(resp.Body)
}
