// Package tutor coordinates one learner session: question navigation, running code and requesting feedback.
package tutor

import (
	"context"
	"fmt"
	"github.com/myrjola/tutorai/internal/audit"
	"github.com/myrjola/tutorai/internal/feedback"
	"github.com/myrjola/tutorai/internal/metrics"
	"github.com/myrjola/tutorai/internal/questions"
	"github.com/myrjola/tutorai/internal/sandbox"
)

// Unavailable is shown when neither streaming nor one-shot evaluation succeeds.
const Unavailable = "AI Evaluation unavailable"

// State is the per-session state. The zero value is a fresh session at the first question.
type State struct {
	QuestionIndex int
	// Identity is the authenticated username, empty until known.
	Identity string
}

// Direction is a navigation step.
type Direction int

const (
	Next Direction = iota
	Previous
)

// Update is one emission of a run or help action. Text replaces whatever was displayed before.
type Update struct {
	Text string
	// Err is set when a help request failed. Text then holds the partial hint, if any.
	Err error
}

// Executor runs learner code.
type Executor interface {
	Execute(ctx context.Context, src string) sandbox.Result
}

// Feedback produces AI feedback.
type Feedback interface {
	Stream(ctx context.Context, req feedback.Request) <-chan feedback.StreamResult
	Complete(ctx context.Context, req feedback.Request) (string, error)
}

// Journal hands out application event streams per identity.
type Journal interface {
	App(identity string) *audit.Stream
}

// Catalogs provides the current question catalog.
type Catalogs interface {
	Current() *questions.Catalog
}

type Tutor struct {
	catalogs Catalogs
	executor Executor
	feedback Feedback
	journal  Journal
}

func New(catalogs Catalogs, executor Executor, fb Feedback, journal Journal) *Tutor {
	return &Tutor{
		catalogs: catalogs,
		executor: executor,
		feedback: fb,
		journal:  journal,
	}
}

// Question returns the active question of state.
func (t *Tutor) Question(state State) questions.Question {
	return t.catalogs.Current().At(state.QuestionIndex)
}

// Navigate moves state one question in direction, wrapping around at both ends.
func (t *Tutor) Navigate(state State, direction Direction) (State, questions.Question) {
	catalog := t.catalogs.Current()
	var (
		index int
		q     questions.Question
	)
	if direction == Previous {
		index, q = catalog.Previous(state.QuestionIndex)
	} else {
		index, q = catalog.Next(state.QuestionIndex)
	}
	state.QuestionIndex = index
	return state, q
}

// ResolveIdentity records connIdentity in state unless an identity is already known.
func ResolveIdentity(state State, connIdentity string) State {
	if state.Identity == "" {
		state.Identity = connIdentity
	}
	return state
}

// Run executes code and then streams an evaluation of it.
//
// The first update is the execution output block, or the fault if execution failed in which case nothing else
// follows. Evaluation updates append the cumulative feedback to the output block. If streaming fails, the one-shot
// completion replaces the partial feedback; if that fails too, [Unavailable] is shown.
func (t *Tutor) Run(ctx context.Context, state State, code string) <-chan Update {
	out := make(chan Update)
	go func() {
		defer close(out)
		emit := emitter(ctx, out)
		q := t.Question(state)
		journal := t.journal.App(state.Identity)

		journal.Info(ctx, audit.ExecStart, fmt.Sprintf("Question: %s... | Code: %s...", truncate(q.Text, 50), truncate(code, 100))) //nolint:mnd,lll // excerpt
		result := t.executor.Execute(ctx, code)
		if result.IsFault() {
			metrics.ExecutionsTotal.WithLabelValues("fault").Inc()
			journal.Error(ctx, audit.ExecFailure, "Error: "+result.Text())
			emit(Update{Text: result.String(), Err: nil})
			return
		}
		metrics.ExecutionsTotal.WithLabelValues("output").Inc()
		journal.Info(ctx, audit.ExecSuccess, "Output: "+truncate(result.Text(), 100)) //nolint:mnd // excerpt

		base := OutputBlock(result.Text())
		if !emit(Update{Text: base, Err: nil}) {
			return
		}

		req := feedback.Request{Mode: feedback.Evaluation, Question: q.Text, Code: code, Context: ""}
		journal.Info(ctx, audit.EvalStarted, "Requesting streaming evaluation")
		for r := range t.feedback.Stream(ctx, req) {
			switch r.Kind {
			case feedback.Chunk:
				journal.Debug(ctx, audit.EvalChunk, fmt.Sprintf("Chunk of %d chars, %d total", r.Delta, len(r.Text)))
				if !emit(Update{Text: base + r.Text, Err: nil}) {
					return
				}
			case feedback.Done:
				journal.Info(ctx, audit.EvalCompleted, fmt.Sprintf("Streaming evaluation completed, %d chars", len(r.Text)))
			case feedback.Failed:
				journal.Warn(ctx, audit.EvalFallback, "Streaming failed, using one-shot completion: "+r.Err.Error())
				text, err := t.feedback.Complete(ctx, req)
				if err != nil {
					journal.Error(ctx, audit.EvalFailed, "One-shot evaluation failed: "+err.Error())
					emit(Update{Text: base + Unavailable, Err: nil})
					return
				}
				journal.Info(ctx, audit.EvalCompleted, fmt.Sprintf("One-shot evaluation completed, %d chars", len(text)))
				emit(Update{Text: base + text, Err: nil})
			}
		}
	}()
	return out
}

// Help streams a hint for code given the output of its last run. Provider faults are reported in Update.Err and
// there is no fallback.
func (t *Tutor) Help(ctx context.Context, state State, code string, priorOutput string) <-chan Update {
	out := make(chan Update)
	go func() {
		defer close(out)
		emit := emitter(ctx, out)
		q := t.Question(state)
		journal := t.journal.App(state.Identity)

		journal.Info(ctx, audit.HelpRequested, fmt.Sprintf("Question: %s... | Code: %s...", truncate(q.Text, 50), truncate(code, 100))) //nolint:mnd,lll // excerpt
		req := feedback.Request{Mode: feedback.Hint, Question: q.Text, Code: code, Context: priorOutput}
		for r := range t.feedback.Stream(ctx, req) {
			switch r.Kind {
			case feedback.Chunk:
				journal.Debug(ctx, audit.HelpChunk, fmt.Sprintf("Chunk of %d chars, %d total", r.Delta, len(r.Text)))
				if !emit(Update{Text: r.Text, Err: nil}) {
					return
				}
			case feedback.Done:
				journal.Info(ctx, audit.HelpCompleted, fmt.Sprintf("Hint completed, %d chars", len(r.Text)))
			case feedback.Failed:
				journal.Error(ctx, audit.HelpFailed, "Hint failed: "+r.Err.Error())
				emit(Update{Text: r.Text, Err: r.Err})
			}
		}
	}()
	return out
}

// OutputBlock frames execution output above the evaluation.
func OutputBlock(output string) string {
	return "### Code Output\n```\n" + output + "\n```\n\n### AI Evaluation\n"
}

func emitter(ctx context.Context, out chan<- Update) func(Update) bool {
	return func(u Update) bool {
		select {
		case out <- u:
			return true
		case <-ctx.Done():
			return false
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
