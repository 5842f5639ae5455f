// Package chat is the write side of sloshy: an authenticated client for the
// chat service, one per server, plus a local stand-in that never touches the
// network.
//
// The protocol surface is deliberately tiny: log in once per server, pick up
// a room's fkey by visiting it (the closest thing to "joining"), and post a
// message. Everything else the service offers is out of scope.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Credentials authenticate the bot against the main site behind a chat
// server. They normally come from SLOSHY_EMAIL / SLOSHY_PASSWORD.
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Email) != "" && strings.TrimSpace(c.Password) != ""
}

var ErrNoCredentials = errors.New("chat credentials are not set")

// Client posts to rooms on a single chat server.
type Client interface {
	// Join makes the bot present in the room without saying anything.
	Join(ctx context.Context, roomID int) error
	// Send joins the room if needed and posts message.
	Send(ctx context.Context, roomID int, message string) error
}

// Options makes transport behavior explicit. PostInterval spaces out
// outbound messages so a scan over many due rooms doesn't flood the
// service; the interval is shared across all servers.
type Options struct {
	Timeout      time.Duration // per-request; default 30s
	PostInterval time.Duration // minimum gap between posts; default 3s
	UserAgent    string
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	if out.PostInterval <= 0 {
		out.PostInterval = 3 * time.Second
	}
	if out.UserAgent == "" {
		out.UserAgent = "SloshyBot/2.0 (+https://github.com/tripleee/sloshy)"
	}
	return out
}
