// Package bot wires the pieces together: probe every configured room,
// decide which ones are about to freeze, and post where warranted. One
// mode, one pass, exit — persistence across runs is the scheduler's
// problem, not ours.
package bot

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/tripleee/sloshy/internal/config"
	"github.com/tripleee/sloshy/internal/transcript"
	"github.com/tripleee/sloshy/pkg/logx"
)

const projectURL = "https://github.com/tripleee/sloshy"

// Prober reads a room's latest activity. *transcript.Client implements it.
type Prober interface {
	Latest(ctx context.Context, server string, roomID int) (transcript.Snapshot, error)
}

// Searcher locates a user's posts in a room. *transcript.Client implements
// it; room tests use it to find the bot's own prior visits.
type Searcher interface {
	Search(ctx context.Context, server string, roomID int, userID int64, phrase string) (string, error)
}

// Sender posts messages. *chat.Registry implements it.
type Sender interface {
	Send(ctx context.Context, server string, roomID int, message string) error
	Join(ctx context.Context, server string, roomID int) error
}

type Bot struct {
	cfg    *config.Config
	probe  Prober
	sender Sender
	log    logx.Logger

	healthURL string
	now       func() time.Time
	rng       *rand.Rand
}

// Params collects the bot's dependencies. Config, Probe, and Sender are
// required; the rest default sensibly.
type Params struct {
	Config    *config.Config
	Probe     Prober
	Sender    Sender
	Log       logx.Logger
	HealthURL string

	// Now and Rand are injectable for tests.
	Now  func() time.Time
	Rand *rand.Rand
}

func New(p Params) *Bot {
	b := &Bot{
		cfg:       p.Config,
		probe:     p.Probe,
		sender:    p.Sender,
		log:       p.Log,
		healthURL: p.HealthURL,
		now:       p.Now,
		rng:       p.Rand,
	}
	if b.log.IsZero() {
		b.log = logx.Nop()
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return b
}

// nodename identifies where sloshy is running, for the startup message in
// the home room.
func (b *Bot) nodename() string {
	if b.cfg.Nodename != "" {
		return b.cfg.Nodename
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown host"
}

// Scan is the nightly entry point: visit every room transcript, check
// whether the room is in danger of freezing, and post a thawing notice
// where it is. Status lines go to the home room as the scan progresses.
//
// A failed probe or post is recorded in the report and does not stop the
// scan; the returned error is only non-nil when the scan itself could not
// run at all.
func (b *Bot) Scan(ctx context.Context, startupMessage string) (*Report, error) {
	now := b.now()
	report := &Report{Mode: "scan", Started: now}

	b.homeNotice(ctx, fmt.Sprintf("[Sloshy](%s) %s on %s",
		projectURL, startupMessage, b.nodename()))

	for _, room := range b.cfg.AllRooms() {
		if room.IsHome() {
			continue
		}
		res := b.scanRoom(ctx, now, room)
		report.Results = append(report.Results, res)
	}

	report.log(b.log)
	if !report.HasFailures() {
		b.pingHealth(ctx)
	}
	return report, nil
}

func (b *Bot) scanRoom(ctx context.Context, now time.Time, room *config.Room) RoomResult {
	res := RoomResult{Room: room}

	snap, err := b.probe.Latest(ctx, room.Server.Host, room.ID)
	if err != nil {
		res.Outcome = OutcomeProbeFailed
		res.Err = err
		b.log.Error("probe failed", logx.String("room", room.String()), logx.Err(err))
		b.homeNotice(ctx, fmt.Sprintf("%s: could not fetch activity (%s)", room.Name, err))
		return res
	}
	res.Snapshot = snap

	age := now.Sub(snap.When)
	if snap.When.IsZero() {
		b.homeNotice(ctx, fmt.Sprintf("[%s](%s): no activity at all", room.Name, room.URL()))
	} else {
		b.homeNotice(ctx, fmt.Sprintf("[%s](%s): latest activity %s (%s ago)",
			room.Name, snap.URL, snap.When.Format("2006-01-02 15:04"), age.Round(time.Minute)))
	}
	b.log.Info("room probed",
		logx.String("room", room.String()),
		logx.Time("latest", snap.When),
		logx.Int("messages", snap.MessageCount))

	if !isDue(now, snap.When, b.cfg.EffectiveThreshold(room), snap.MessageCount) {
		res.Outcome = OutcomeFresh
		return res
	}

	res.Due = true
	if err := b.sender.Send(ctx, room.Server.Host, room.ID, b.thawMessage()); err != nil {
		res.Outcome = OutcomePostFailed
		res.Err = err
		b.log.Error("post failed", logx.String("room", room.String()), logx.Err(err))
		return res
	}
	res.Outcome = OutcomeThawed
	b.homeNotice(ctx, fmt.Sprintf(
		"%s: Age threshold exceeded; sending a thawing notice", room.Name))
	return res
}

// homeNotice best-effort posts a status line to the home room. Status
// traffic must never abort a scan.
func (b *Bot) homeNotice(ctx context.Context, msg string) {
	home := b.cfg.HomeRoom
	if err := b.sender.Send(ctx, home.Server.Host, home.ID, msg); err != nil {
		b.log.Warn("home room notice failed", logx.Err(err))
	}
}

// TestRooms probes every configured room, home included, and reports
// reachability. Nothing is posted.
func (b *Bot) TestRooms(ctx context.Context) (*Report, error) {
	report := &Report{Mode: "test-rooms", Started: b.now()}

	for _, room := range b.cfg.AllRooms() {
		res := RoomResult{Room: room}
		snap, err := b.probe.Latest(ctx, room.Server.Host, room.ID)
		if err != nil {
			res.Outcome = OutcomeProbeFailed
			res.Err = err
			b.log.Error("room unreachable", logx.String("room", room.String()), logx.Err(err))
		} else {
			res.Snapshot = snap
			res.Outcome = OutcomeFresh
			b.log.Info("room reachable",
				logx.String("room", room.String()), logx.Time("latest", snap.When))
			res.PriorVisit = b.findPriorVisit(ctx, room)
		}
		report.Results = append(report.Results, res)
	}

	report.log(b.log)
	return report, nil
}

// findPriorVisit searches the room for a post by the bot's own account,
// confirming it has been here before. Only possible when the prober can
// search and the bot's user id on the network is configured; failures are
// logged, not fatal, since the search is informational.
func (b *Bot) findPriorVisit(ctx context.Context, room *config.Room) string {
	searcher, ok := b.probe.(Searcher)
	if !ok || room.Server.BotID <= 0 {
		return ""
	}
	link, err := searcher.Search(ctx, room.Server.Host, room.ID, room.Server.BotID, "Sloshy")
	if err != nil {
		b.log.Warn("self-post search failed",
			logx.String("room", room.String()), logx.Err(err))
		return ""
	}
	if link != "" {
		b.log.Info("prior visit found",
			logx.String("room", room.String()), logx.String("link", link))
	}
	return link
}

// Announce force-posts an introduction to every configured room regardless
// of staleness. Meant to run once per newly added room.
func (b *Bot) Announce(ctx context.Context, message string) (*Report, error) {
	if message == "" {
		message = fmt.Sprintf(
			"Hi! [Sloshy the Thawman](%s) will drop by occasionally to keep this room from freezing.",
			projectURL)
	}
	report := &Report{Mode: "announce", Started: b.now()}

	for _, room := range b.cfg.AllRooms() {
		res := RoomResult{Room: room}
		if err := b.sender.Send(ctx, room.Server.Host, room.ID, message); err != nil {
			res.Outcome = OutcomePostFailed
			res.Err = err
			b.log.Error("announce failed", logx.String("room", room.String()), logx.Err(err))
		} else {
			res.Outcome = OutcomeThawed
		}
		report.Results = append(report.Results, res)
	}

	report.log(b.log)
	return report, nil
}
