package chat

import (
	"context"
	"fmt"

	"github.com/tripleee/sloshy/pkg/logx"
)

// localClient is the dry-run stand-in: no networking at all. Joins and sends
// are logged, and the message text goes to stdout so a local run still shows
// what would have been posted.
type localClient struct {
	host string
	log  logx.Logger
}

func newLocalClient(host string, log logx.Logger) *localClient {
	return &localClient{host: host, log: log.With(logx.String("server", host))}
}

func (c *localClient) Join(_ context.Context, roomID int) error {
	c.log.Info("local - not joining room", logx.Int("room", roomID))
	return nil
}

func (c *localClient) Send(_ context.Context, roomID int, message string) error {
	c.log.Info("local - not sending message", logx.Int("room", roomID))
	fmt.Println(message)
	return nil
}
