package bot

import (
	"context"
	"net/http"
	"time"

	"github.com/tripleee/sloshy/pkg/logx"
)

// pingHealth tells the external liveness monitor that a scan finished
// cleanly. Best-effort: a failed ping is logged, nothing more — the
// monitor's silence alarm is the actual alerting mechanism.
func (b *Bot) pingHealth(ctx context.Context) {
	if b.healthURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.healthURL, nil)
	if err != nil {
		b.log.Warn("health ping failed", logx.Err(err))
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		b.log.Warn("health ping failed", logx.Err(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b.log.Warn("health ping failed", logx.String("status", resp.Status))
		return
	}
	b.log.Debug("health ping sent", logx.String("url", b.healthURL))
}
