package main

import (
	"context"
	"github.com/myrjola/tutorai/internal/e2etest"
	"github.com/myrjola/tutorai/internal/errors"
	"github.com/myrjola/tutorai/internal/logging"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

// TestRun submits a small program and follows its stream until the evaluation is done.
func TestRun(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	doc, err := client.SubmitForm(ctx, "/", "/run", url.Values{"code": {"print('smoke')"}})
	if err != nil {
		return errors.Wrap(err, "submit run form")
	}
	streamURL, ok := doc.Find("#output").Attr("data-stream")
	if !ok {
		return errors.New("run response has no stream")
	}
	var events []e2etest.Event
	if events, err = client.Stream(ctx, streamURL); err != nil {
		return errors.Wrap(err, "read stream", slog.String("stream", streamURL))
	}
	if len(events) < 2 || events[len(events)-1].Name != "done" { //nolint:mnd // at least one update and done
		return errors.New("stream ended unexpectedly", slog.Int("events", len(events)))
	}
	if !strings.Contains(events[0].Data, "smoke") {
		return errors.New("execution output missing", slog.String("data", events[0].Data))
	}
	return nil
}

func main() {
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only the base URL to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <base-url>")
		os.Exit(1)
	}

	var (
		baseURL = strings.TrimSuffix(os.Args[1], "/")
		client  *e2etest.Client
		err     error
	)
	ctx = logging.WithAttrs(ctx, slog.String("baseURL", baseURL))

	if client, err = e2etest.NewClient(baseURL); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	readyCtx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()
	if err = client.WaitForReady(readyCtx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not healthy", errors.SlogError(err))
		os.Exit(1)
	}

	// Credentials are only needed when the server runs with authentication.
	if username, ok := os.LookupEnv("SMOKETEST_USERNAME"); ok {
		if _, err = client.Login(ctx, username, os.Getenv("SMOKETEST_ACCESS_KEY")); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "error logging in", errors.SlogError(err))
			os.Exit(1)
		}
	}
	if err = TestRun(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing run", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
}
