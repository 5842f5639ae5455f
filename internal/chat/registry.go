package chat

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tripleee/sloshy/pkg/logx"
)

// Registry hands out one Client per chat server, creating them on first use.
// All real clients share one outbound limiter so the post pacing holds
// across servers, not just within one.
type Registry struct {
	creds   Credentials
	local   bool
	opts    Options
	log     logx.Logger
	limiter *rate.Limiter

	// scheme propagates to created clients; tests point it at http.
	scheme string

	mu      sync.Mutex
	clients map[string]Client
}

func NewRegistry(creds Credentials, local bool, opts Options, log logx.Logger) *Registry {
	opts = opts.withDefaults()
	return &Registry{
		creds:   creds,
		local:   local,
		opts:    opts,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(opts.PostInterval), 1),
		scheme:  "https",
		clients: make(map[string]Client),
	}
}

// Local reports whether this registry produces dry-run clients.
func (r *Registry) Local() bool { return r.local }

// ClientFor returns the client for server, creating and caching it first if
// needed.
func (r *Registry) ClientFor(server string) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[server]; ok {
		return c, nil
	}

	var c Client
	if r.local {
		c = newLocalClient(server, r.log)
	} else {
		wc, err := newWebClient(server, r.creds, r.opts, r.limiter, r.log)
		if err != nil {
			return nil, err
		}
		wc.scheme = r.scheme
		c = wc
	}
	r.clients[server] = c
	return c, nil
}

// Send posts message to the room via the server's client.
func (r *Registry) Send(ctx context.Context, server string, roomID int, message string) error {
	c, err := r.ClientFor(server)
	if err != nil {
		return err
	}
	return c.Send(ctx, roomID, message)
}

// Join makes the bot visit the room without posting.
func (r *Registry) Join(ctx context.Context, server string, roomID int) error {
	c, err := r.ClientFor(server)
	if err != nil {
		return err
	}
	return c.Join(ctx, roomID)
}
