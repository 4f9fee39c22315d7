// Package feedback requests hints and evaluations for learner code from the language model.
package feedback

import (
	"context"
	"github.com/myrjola/tutorai/internal/ai"
	"github.com/myrjola/tutorai/internal/errors"
	"github.com/myrjola/tutorai/internal/metrics"
	"github.com/sashabaranov/go-openai"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Provider is the language model boundary. [ai.Client] implements it.
type Provider interface {
	SyncCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
	StreamCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (ai.Stream, error)
}

// Kind tags a [StreamResult].
type Kind int

const (
	// Chunk carries the accumulated response so far.
	Chunk Kind = iota
	// Done ends a successful stream and carries the full response.
	Done
	// Failed ends a stream after a provider fault. Text holds the partial response received before it.
	Failed
)

// StreamResult is one emission of [Pipeline.Stream].
type StreamResult struct {
	Kind Kind
	// Text is the cumulative response text. Each emission replaces the previous one.
	Text string
	// Delta is the size in bytes of the chunk that produced this emission.
	Delta int
	// Err is the fault reason of a Failed result.
	Err error
}

type Pipeline struct {
	provider Provider
	logger   *slog.Logger
}

func NewPipeline(provider Provider, logger *slog.Logger) *Pipeline {
	return &Pipeline{provider: provider, logger: logger}
}

// Stream requests a streaming completion for req.
//
// The returned channel yields Chunk results with a growing text and ends with exactly one Done or Failed result before
// it is closed. Provider faults never escape as panics or errors; they are reported as Failed. If ctx is cancelled the
// channel is closed without a terminal result.
func (p *Pipeline) Stream(ctx context.Context, req Request) <-chan StreamResult {
	out := make(chan StreamResult)
	go func() {
		defer close(out)
		start := time.Now()
		send := func(r StreamResult) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(partial string, err error) {
			p.observe(req.Mode, "stream", start, err)
			p.logger.LogAttrs(ctx, slog.LevelWarn, "feedback stream failed",
				slog.String("mode", req.Mode.String()), errors.SlogError(err))
			send(StreamResult{Kind: Failed, Text: partial, Delta: 0, Err: err})
		}
		var text strings.Builder
		defer func() {
			if r := recover(); r != nil {
				fail(text.String(), errors.New("provider panicked", slog.Any("panic", r)))
			}
		}()

		stream, err := p.provider.StreamCompletion(ctx, req.Messages())
		if err != nil {
			fail("", errors.Wrap(err, "start stream"))
			return
		}
		defer func() {
			_ = stream.Close()
		}()

		for {
			delta, recvErr := stream.Recv()
			if errors.Is(recvErr, io.EOF) {
				p.observe(req.Mode, "stream", start, nil)
				send(StreamResult{Kind: Done, Text: text.String(), Delta: 0, Err: nil})
				return
			}
			if recvErr != nil {
				fail(text.String(), errors.Wrap(recvErr, "receive chunk"))
				return
			}
			if delta == "" {
				continue
			}
			text.WriteString(delta)
			if !send(StreamResult{Kind: Chunk, Text: text.String(), Delta: len(delta), Err: nil}) {
				return
			}
		}
	}()
	return out
}

// Complete requests the whole response for req in one call.
func (p *Pipeline) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := p.provider.SyncCompletion(ctx, req.Messages())
	p.observe(req.Mode, "complete", start, err)
	if err != nil {
		return "", errors.Wrap(err, "complete feedback", slog.String("mode", req.Mode.String()))
	}
	return text, nil
}

func (p *Pipeline) observe(mode Mode, path string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.FeedbackRequestsTotal.WithLabelValues(mode.String(), path, status).Inc()
	metrics.FeedbackLatency.WithLabelValues(mode.String(), path).Observe(time.Since(start).Seconds())
}
