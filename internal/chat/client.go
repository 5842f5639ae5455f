package chat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/tripleee/sloshy/pkg/logx"
)

// webClient talks to one chat server over HTTP. Login happens lazily on the
// first Join/Send and is shared by all rooms on the server; room fkeys are
// cached for the lifetime of the run.
type webClient struct {
	host  string // e.g. chat.stackexchange.com
	site  string // the main site behind it, e.g. stackexchange.com
	creds Credentials
	opts  Options

	http    *http.Client
	log     logx.Logger
	limiter *rate.Limiter // shared across servers, owned by the registry

	scheme string

	mu       sync.Mutex
	loggedIn bool
	fkeys    map[int]string
}

func newWebClient(host string, creds Credentials, opts Options, limiter *rate.Limiter, log logx.Logger) (*webClient, error) {
	if !creds.Valid() {
		return nil, ErrNoCredentials
	}
	site, ok := strings.CutPrefix(host, "chat.")
	if !ok {
		return nil, fmt.Errorf("chat: unexpected server name %q (want chat.<site>)", host)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &webClient{
		host:    host,
		site:    site,
		creds:   creds,
		opts:    opts,
		http:    &http.Client{Jar: jar, Timeout: opts.Timeout},
		log:     log.With(logx.String("server", host)),
		limiter: limiter,
		scheme:  "https",
		fkeys:   make(map[int]string),
	}, nil
}

func (c *webClient) Join(ctx context.Context, roomID int) error {
	if err := c.ensureLogin(ctx); err != nil {
		return err
	}
	_, err := c.roomFkey(ctx, roomID)
	return err
}

func (c *webClient) Send(ctx context.Context, roomID int, message string) error {
	if err := c.Join(ctx, roomID); err != nil {
		return err
	}
	fkey, err := c.roomFkey(ctx, roomID)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	form := url.Values{"text": {message}, "fkey": {fkey}}
	postURL := fmt.Sprintf("%s://%s/chats/%d/messages/new", c.scheme, c.host, roomID)
	resp, err := c.postForm(ctx, postURL, form)
	if err != nil {
		return fmt.Errorf("post to %s/rooms/%d: %w", c.host, roomID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post to %s/rooms/%d: status %s: %s",
			c.host, roomID, resp.Status, strings.TrimSpace(string(body)))
	}
	c.log.Debug("message posted", logx.Int("room", roomID))
	return nil
}

// ensureLogin authenticates against the main site. The chat server trusts
// the resulting session cookies.
func (c *webClient) ensureLogin(ctx context.Context) error {
	c.mu.Lock()
	done := c.loggedIn
	c.mu.Unlock()
	if done {
		return nil
	}

	loginURL := fmt.Sprintf("%s://%s/users/login", c.scheme, c.site)
	fkey, err := c.scrapeFkey(ctx, loginURL, "input[name=fkey]")
	if err != nil {
		return fmt.Errorf("login to %s: %w", c.site, err)
	}

	form := url.Values{
		"email":    {c.creds.Email},
		"password": {c.creds.Password},
		"fkey":     {fkey},
	}
	resp, err := c.postForm(ctx, loginURL, form)
	if err != nil {
		return fmt.Errorf("login to %s: %w", c.site, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return fmt.Errorf("login to %s: status %s", c.site, resp.Status)
	}

	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()
	c.log.Debug("logged in", logx.String("site", c.site))
	return nil
}

// roomFkey fetches (and caches) the anti-forgery key needed to post into a
// room. Visiting the room page is also what makes the bot show up in its
// user list.
func (c *webClient) roomFkey(ctx context.Context, roomID int) (string, error) {
	c.mu.Lock()
	fkey, ok := c.fkeys[roomID]
	c.mu.Unlock()
	if ok {
		return fkey, nil
	}

	roomURL := fmt.Sprintf("%s://%s/rooms/%d", c.scheme, c.host, roomID)
	fkey, err := c.scrapeFkey(ctx, roomURL, "input#fkey")
	if err != nil {
		return "", fmt.Errorf("join %s/rooms/%d: %w", c.host, roomID, err)
	}

	c.mu.Lock()
	c.fkeys[roomID] = fkey
	c.mu.Unlock()
	return fkey, nil
}

func (c *webClient) scrapeFkey(ctx context.Context, pageURL, selector string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	fkey, ok := doc.Find(selector).First().Attr("value")
	if !ok || fkey == "" {
		return "", fmt.Errorf("no fkey on %s", pageURL)
	}
	return fkey, nil
}

func (c *webClient) postForm(ctx context.Context, postURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}
