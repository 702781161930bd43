package generation

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"kartobot/internal/genimage"
	"kartobot/internal/quota"
)

// State is the terminal outcome of one generation job.
type State int

const (
	StateRejected State = iota
	StateSucceeded
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateRejected:
		return "rejected"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

type Outcome struct {
	State    State
	Artifact genimage.Artifact
	Err      error
	// Used is the user's generation count after this job, for captions.
	Used int
}

// MessageRef identifies the single mutable status message owned by one job.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Finish is the terminal notification for a job: on success the progress
// message is deleted and the artifact sent with a caption; otherwise the
// progress message is edited to the terminal text (or a new message sent
// when no ref exists).
type Finish struct {
	OK       bool
	Artifact genimage.Artifact
	Caption  string
	Text     string
}

// Notifier posts, edits and finalizes the user-visible status message for
// one chat. Every method is best-effort: delivery failures are logged by the
// implementation and never abort the job.
type Notifier interface {
	// Send posts a standalone message (greetings, rejections).
	Send(ctx context.Context, text string)
	// Start posts the first progress message. A nil ref means posting
	// failed; the job continues without live updates.
	Start(ctx context.Context, text string) *MessageRef
	Update(ctx context.Context, ref *MessageRef, text string)
	Finish(ctx context.Context, ref *MessageRef, fin Finish)
}

// QuotaStore is the per-user daily gate.
type QuotaStore interface {
	CheckAndReset(ctx context.Context, id quota.Identity, today time.Time) (int, bool, error)
	RecordSuccess(ctx context.Context, telegramID int64, today time.Time) error
}

// Job is one user-initiated generation request.
type Job struct {
	Identity quota.Identity
	Input    genimage.Input
	Notifier Notifier
}

// Orchestrator coordinates the quota gate, the remote client and the
// progress cadence against a wall-clock deadline.
type Orchestrator struct {
	Client genimage.Client
	Quota  QuotaStore
	Limit  int

	// Messages rotate on the progress cadence; defaults to
	// DefaultProgressMessages when empty.
	Messages []string

	Tick             time.Duration // terminal/cadence check interval, default 500ms
	ProgressInterval time.Duration // cadence between message rotations, default 3s
	Deadline         time.Duration // hard wall-clock bound, default 60s

	Now func() time.Time // test hook
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) tick() time.Duration {
	if o.Tick > 0 {
		return o.Tick
	}
	return 500 * time.Millisecond
}

func (o *Orchestrator) progressInterval() time.Duration {
	if o.ProgressInterval > 0 {
		return o.ProgressInterval
	}
	return 3 * time.Second
}

func (o *Orchestrator) deadline() time.Duration {
	if o.Deadline > 0 {
		return o.Deadline
	}
	return 60 * time.Second
}

func (o *Orchestrator) limit() int {
	if o.Limit > 0 {
		return o.Limit
	}
	return quota.DefaultDailyLimit
}

func (o *Orchestrator) messages() []string {
	if len(o.Messages) > 0 {
		return o.Messages
	}
	return DefaultProgressMessages
}

type produced struct {
	art genimage.Artifact
	err error
}

// Run drives one job to a terminal state. It blocks for up to the deadline;
// each request is an independent unit of work.
func (o *Orchestrator) Run(ctx context.Context, job Job) Outcome {
	start := o.now()
	today := quota.DateOnly(start)

	count, allowed, err := o.Quota.CheckAndReset(ctx, job.Identity, today)
	if err != nil {
		// Storage down is fatal for the request, never an open gate.
		return Outcome{State: StateFailed, Err: err, Used: count}
	}
	if !allowed {
		job.Notifier.Send(ctx, quotaExceededText(o.limit()))
		return Outcome{State: StateRejected, Used: count}
	}

	msgs := o.messages()

	// The user sees immediate feedback before the remote call starts.
	ref := job.Notifier.Start(ctx, msgs[0])

	// The producer runs the remote call on its own goroutine and delivers
	// its result exactly once over a buffered channel, so a late completion
	// after the deadline is discarded instead of racing a second write.
	prodCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan produced, 1)
	go func() {
		art, err := o.Client.Generate(prodCtx, job.Input)
		resultCh <- produced{art: art, err: err}
	}()

	ticker := time.NewTicker(o.tick())
	defer ticker.Stop()
	deadline := time.NewTimer(o.deadline())
	defer deadline.Stop()

	msgIdx := 0
	for {
		select {
		case <-ctx.Done():
			job.Notifier.Finish(ctx, ref, Finish{Text: failureText})
			return Outcome{State: StateFailed, Err: ctx.Err(), Used: count}

		case res := <-resultCh:
			return o.finish(ctx, job, ref, count, today, res)

		case <-deadline.C:
			job.Notifier.Finish(ctx, ref, Finish{Text: timeoutText})
			return Outcome{State: StateTimedOut, Used: count}

		case <-ticker.C:
			elapsed := o.now().Sub(start)
			// Advance the cadence index, never regress it.
			for msgIdx < len(msgs)-1 && elapsed > time.Duration(msgIdx+1)*o.progressInterval() {
				msgIdx++
				job.Notifier.Update(ctx, ref, msgs[msgIdx])
			}
		}
	}
}

func (o *Orchestrator) finish(ctx context.Context, job Job, ref *MessageRef, count int, today time.Time, res produced) Outcome {
	if res.err != nil {
		job.Notifier.Finish(ctx, ref, Finish{Text: failureText})
		return Outcome{State: StateFailed, Err: res.err, Used: count}
	}
	if res.art.Empty() {
		// A success envelope without the artifact maps to Failed.
		job.Notifier.Finish(ctx, ref, Finish{Text: failureText})
		return Outcome{State: StateFailed, Err: genimage.ErrMalformedResponse, Used: count}
	}

	if err := o.Quota.RecordSuccess(ctx, job.Identity.TelegramID, today); err != nil {
		// The card was generated; deliver it and leave the count alone.
		log.WithError(err).WithField("telegram_id", job.Identity.TelegramID).
			Error("failed to record successful generation")
	}

	used := count + 1
	job.Notifier.Finish(ctx, ref, Finish{
		OK:       true,
		Artifact: res.art,
		Caption:  successCaption(used, o.limit()),
	})
	return Outcome{State: StateSucceeded, Artifact: res.art, Used: used}
}
