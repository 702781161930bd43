package genimage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Artifact is the generated image: either a URL the remote service hosts,
// or inline bytes with their mime type. Exactly one of URL/Data is set.
type Artifact struct {
	URL  string
	Data []byte
	MIME string
}

func (a Artifact) Empty() bool { return a.URL == "" && len(a.Data) == 0 }

// DataURL renders the artifact as a data: URL, matching the envelope the
// original HTTP surface returned for inline results.
func (a Artifact) DataURL() string {
	if a.URL != "" {
		return a.URL
	}
	mime := a.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Input is one generation request: a base64 image payload (raw base64 or a
// data: URL) plus an optional prompt.
type Input struct {
	ImageBase64 string
	Prompt      string
}

// Client is the synchronous capability variant: one bounded call, no polling.
type Client interface {
	Name() string
	Generate(ctx context.Context, in Input) (Artifact, error)
}

// JobHandle is the opaque task identifier an asynchronous service assigns.
type JobHandle string

type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusFailed
)

// PollResult is the tagged poll outcome: Pending, Succeeded with an
// artifact, or Failed with an error.
type PollResult struct {
	Status   Status
	Artifact Artifact
	Err      error
}

// AsyncClient is the asynchronous capability variant: submit returns a job
// handle that is polled until terminal.
type AsyncClient interface {
	Name() string
	Submit(ctx context.Context, in Input) (JobHandle, error)
	Poll(ctx context.Context, h JobHandle) (PollResult, error)
}

var (
	ErrNotConfigured     = errors.New("generation backend not configured")
	ErrMalformedResponse = errors.New("malformed generation response")
)

// StatusError is a non-2xx reply from the remote service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation service returned %d: %s", e.Code, e.Body)
}

// RemoteError is a failure the remote service reported inside a well-formed
// envelope.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("generation failed remotely (code %s): %s", e.Code, e.Message)
}

// SplitDataURL accepts either raw base64 or a data:<mime>;base64,<data> URL
// and returns the decoded bytes with their mime type.
func SplitDataURL(s string) (mime string, data []byte, err error) {
	mime = "image/jpeg"
	if strings.HasPrefix(s, "data:") {
		head, rest, ok := strings.Cut(s, ",")
		if !ok {
			return "", nil, fmt.Errorf("invalid data url")
		}
		if m := strings.TrimSuffix(strings.TrimPrefix(head, "data:"), ";base64"); m != "" {
			mime = m
		}
		s = rest
	}
	data, err = base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	return mime, data, nil
}

// Polled adapts an AsyncClient to the synchronous Client interface by
// submitting once and polling on a fixed interval until the job is terminal
// or the context is cancelled. The caller's context carries the deadline.
type Polled struct {
	Async    AsyncClient
	Interval time.Duration
}

func (p *Polled) Name() string { return p.Async.Name() }

func (p *Polled) Generate(ctx context.Context, in Input) (Artifact, error) {
	h, err := p.Async.Submit(ctx, in)
	if err != nil {
		return Artifact{}, err
	}

	interval := p.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Artifact{}, ctx.Err()
		case <-ticker.C:
			res, err := p.Async.Poll(ctx, h)
			if err != nil {
				return Artifact{}, err
			}
			switch res.Status {
			case StatusSucceeded:
				return res.Artifact, nil
			case StatusFailed:
				return Artifact{}, res.Err
			}
		}
	}
}
