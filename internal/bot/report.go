package bot

import (
	"time"

	"github.com/tripleee/sloshy/internal/config"
	"github.com/tripleee/sloshy/internal/transcript"
	"github.com/tripleee/sloshy/pkg/logx"
)

type Outcome int

const (
	// OutcomeFresh: probed fine, no action needed.
	OutcomeFresh Outcome = iota
	// OutcomeThawed: a message was posted (thaw or announce).
	OutcomeThawed
	// OutcomeProbeFailed: the room could not be probed; skipped.
	OutcomeProbeFailed
	// OutcomePostFailed: the room was due but the post failed.
	OutcomePostFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFresh:
		return "fresh"
	case OutcomeThawed:
		return "posted"
	case OutcomeProbeFailed:
		return "probe failed"
	case OutcomePostFailed:
		return "post failed"
	default:
		return "unknown"
	}
}

// RoomResult is the per-room outcome of one run.
type RoomResult struct {
	Room     *config.Room
	Snapshot transcript.Snapshot
	Due      bool
	Outcome  Outcome
	Err      error

	// PriorVisit is the permalink of a previous post by the bot in this
	// room, when the room test went looking and found one.
	PriorVisit string
}

// Report aggregates a whole run. Per-room failures live here instead of
// aborting the run; the process still exits zero as long as the run itself
// completed.
type Report struct {
	Mode    string
	Started time.Time
	Results []RoomResult
}

// Failures returns the rooms that could not be probed or posted to.
func (r *Report) Failures() []RoomResult {
	var out []RoomResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) HasFailures() bool { return len(r.Failures()) > 0 }

// Posted counts the rooms that received a message this run.
func (r *Report) Posted() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == OutcomeThawed {
			n++
		}
	}
	return n
}

// log writes the end-of-run summary: one line for the totals, one line per
// failed room.
func (r *Report) log(log logx.Logger) {
	log.Info("run complete",
		logx.String("mode", r.Mode),
		logx.Int("rooms", len(r.Results)),
		logx.Int("posted", r.Posted()),
		logx.Int("failed", len(r.Failures())))
	for _, res := range r.Failures() {
		log.Warn("room failed",
			logx.String("room", res.Room.String()),
			logx.String("outcome", res.Outcome.String()),
			logx.Err(res.Err))
	}
}
