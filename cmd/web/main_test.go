package main

import (
	"context"
	"encoding/json"
	"github.com/PuerkitoBio/goquery"
	"github.com/myrjola/tutorai/internal/auth"
	"github.com/myrjola/tutorai/internal/e2etest"
	"github.com/myrjola/tutorai/internal/envstruct"
	"github.com/myrjola/tutorai/internal/testhelpers"
	"github.com/myrjola/tutorai/internal/tutor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testServer struct {
	client *e2etest.Client
	url    string
	logDir string
}

func testEnv(t *testing.T, fake *testhelpers.FakeOpenAI, logDir string, extra map[string]string) map[string]string {
	t.Helper()
	env := map[string]string{
		"TUTORAI_ADDR":        "localhost:0",
		"OPENAI_API_KEY":      "test-key",
		"OPENAI_BASE_URL":     fake.BaseURL(),
		"TUTORAI_QUESTIONS":   "testdata/questions.txt",
		"TUTORAI_LOG_DIR":     logDir,
		"TUTORAI_DEBUG":       "true",
		"TUTORAI_GEO_ENABLED": "false",
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

func startTestServer(t *testing.T, fake *testhelpers.FakeOpenAI, extra map[string]string) testServer {
	t.Helper()
	logDir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, io.Discard, testhelpers.LookupEnv(testEnv(t, fake, logDir, extra)), run)
	require.NoError(t, err)
	return testServer{client: server.Client(), url: server.URL(), logDir: logDir}
}

func questionText(doc *goquery.Document) string {
	return doc.Find("#question").Text()
}

// streamUpdates follows the stream announced in the element selected by target and returns the decoded updates.
func streamUpdates(t *testing.T, client *e2etest.Client, doc *goquery.Document, target string) []updateEvent {
	t.Helper()
	streamURL, ok := doc.Find(target).Attr("data-stream")
	require.True(t, ok, "%s has no stream", target)

	events, err := client.Stream(context.Background(), streamURL)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	require.Equal(t, "done", events[len(events)-1].Name, "stream must end with done")

	updates := make([]updateEvent, 0, len(events)-1)
	for _, e := range events[:len(events)-1] {
		require.Equal(t, "update", e.Name)
		var u updateEvent
		require.NoError(t, json.Unmarshal([]byte(e.Data), &u))
		updates = append(updates, u)
	}
	return updates
}

func readLog(t *testing.T, dir, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(content)
}

func Test_application_home(t *testing.T) {
	server := startTestServer(t, testhelpers.NewFakeOpenAI(t), nil)
	ctx := context.Background()

	doc, err := server.client.GetDoc(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, "1. Print hello\nWrite a program that prints:\nhello", questionText(doc))
	require.Contains(t, doc.Find("h2").Text(), "Question 1 of 3")
	require.Equal(t, 1, doc.Find("form[action='/run'] textarea[name=code]").Length())
	require.Equal(t, 0, doc.Find("form[action='/login']").Length(), "login is disabled by default")

	resp, err := server.client.Get(ctx, "/")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "'nonce-")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func Test_application_navigation(t *testing.T) {
	server := startTestServer(t, testhelpers.NewFakeOpenAI(t), nil)
	ctx := context.Background()

	steps := []struct {
		action string
		want   string
	}{
		{action: "/questions/next", want: "2. Print a sum"},
		{action: "/questions/next", want: "3. Loop"},
		{action: "/questions/next", want: "1. Print hello"},
		{action: "/questions/previous", want: "3. Loop"},
		{action: "/questions/previous", want: "2. Print a sum"},
	}
	for _, step := range steps {
		doc, err := server.client.SubmitForm(ctx, "/", step.action, nil)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(questionText(doc), step.want), "after %s got %q", step.action, questionText(doc))
	}
}

func Test_application_run(t *testing.T) {
	base := tutor.OutputBlock("hi\n")
	tests := []struct {
		name     string
		code     string
		setup    func(fake *testhelpers.FakeOpenAI)
		wantLast string
	}{
		{
			name:     "streams output and evaluation",
			code:     "print('hi')",
			setup:    func(*testhelpers.FakeOpenAI) {},
			wantLast: base + "Good Job",
		},
		{
			name:     "execution fault",
			code:     "1/0",
			setup:    func(*testhelpers.FakeOpenAI) {},
			wantLast: "**Error:** floating-point division by zero",
		},
		{
			name: "falls back to one-shot evaluation",
			code: "print('hi')",
			setup: func(fake *testhelpers.FakeOpenAI) {
				fake.FailStreamOpen()
				fake.SetReply("Fallback evaluation")
			},
			wantLast: base + "Fallback evaluation",
		},
		{
			name: "evaluation unavailable",
			code: "print('hi')",
			setup: func(fake *testhelpers.FakeOpenAI) {
				fake.FailStreamOpen()
				fake.FailSync()
			},
			wantLast: base + tutor.Unavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testhelpers.NewFakeOpenAI(t, "Good", " Job")
			tt.setup(fake)
			server := startTestServer(t, fake, nil)

			doc, err := server.client.SubmitForm(context.Background(), "/", "/run", url.Values{"code": {tt.code}})
			require.NoError(t, err)
			require.Equal(t, tt.code, doc.Find("textarea[name=code]").Text(), "editor keeps the submitted code")

			updates := streamUpdates(t, server.client, doc, "#output")
			require.NotEmpty(t, updates)
			require.Equal(t, tt.wantLast, updates[len(updates)-1].Text)
			for _, u := range updates {
				require.Empty(t, u.Error)
			}
		})
	}
}

func Test_application_runIsAudited(t *testing.T) {
	server := startTestServer(t, testhelpers.NewFakeOpenAI(t, "ok"), nil)
	doc, err := server.client.SubmitForm(context.Background(), "/", "/run", url.Values{"code": {"print(40 + 2)"}})
	require.NoError(t, err)
	updates := streamUpdates(t, server.client, doc, "#output")
	require.Equal(t, tutor.OutputBlock("42\n")+"ok", updates[len(updates)-1].Text)

	log := readLog(t, server.logDir, "app.log")
	assert.Contains(t, log, "msg=EXEC_START")
	assert.Contains(t, log, "msg=EXEC_SUCCESS")
	assert.Contains(t, log, "msg=EVAL_COMPLETED")
	assert.Contains(t, log, "msg=APP_LAUNCHED")
	assert.Contains(t, readLog(t, server.logDir, "access.log"), "msg=APP_START")

	resp, err := server.client.Get(context.Background(), "/metrics")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tutorai_executions_total{outcome="output"}`)
}

func Test_application_help(t *testing.T) {
	t.Run("streams hint", func(t *testing.T) {
		fake := testhelpers.NewFakeOpenAI(t, "Check ", "the spelling")
		server := startTestServer(t, fake, nil)

		doc, err := server.client.SubmitForm(context.Background(), "/", "/help", url.Values{
			"code":   {"pritn('hi')"},
			"output": {"undefined: pritn"},
		})
		require.NoError(t, err)
		require.Equal(t, "undefined: pritn", doc.Find("#output").Text(), "output pane is kept")

		updates := streamUpdates(t, server.client, doc, "#hint")
		require.Equal(t, []updateEvent{
			{Text: "Check ", Error: ""},
			{Text: "Check the spelling", Error: ""},
		}, updates)

		requests := fake.Requests()
		require.Len(t, requests, 1)
		require.True(t, requests[0].Stream)
		require.Equal(t, "question: 1. Print hello\nWrite a program that prints:\nhello code: pritn('hi') output: undefined: pritn",
			requests[0].Messages[1].Content)
	})
	t.Run("reports provider failure", func(t *testing.T) {
		fake := testhelpers.NewFakeOpenAI(t, "Check ")
		fake.FailStreamMidway()
		server := startTestServer(t, fake, nil)

		doc, err := server.client.SubmitForm(context.Background(), "/", "/help", url.Values{"code": {"x"}})
		require.NoError(t, err)
		updates := streamUpdates(t, server.client, doc, "#hint")
		last := updates[len(updates)-1]
		require.Equal(t, "Check ", last.Text)
		require.NotEmpty(t, last.Error)
		require.Len(t, fake.Requests(), 1, "hints have no one-shot fallback")
	})
}

func Test_application_unknownStream(t *testing.T) {
	server := startTestServer(t, testhelpers.NewFakeOpenAI(t), nil)
	events, err := server.client.Stream(context.Background(), "/stream/does-not-exist")
	require.NoError(t, err)
	require.Equal(t, []e2etest.Event{{Name: "done", Data: "{}"}}, events)
}

func Test_application_healthy(t *testing.T) {
	server := startTestServer(t, testhelpers.NewFakeOpenAI(t), nil)
	resp, err := server.client.Get(context.Background(), "/api/healthy")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status healthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, healthStatus{Status: "ok", Questions: 3, Auth: false}, status)
}

func Test_application_streamBelongsToSession(t *testing.T) {
	server := startTestServer(t, testhelpers.NewFakeOpenAI(t, "Good"), nil)
	ctx := context.Background()

	doc, err := server.client.SubmitForm(ctx, "/", "/run", url.Values{"code": {"print('hi')"}})
	require.NoError(t, err)
	streamURL, ok := doc.Find("#output").Attr("data-stream")
	require.True(t, ok)

	other, err := e2etest.NewClient(server.url)
	require.NoError(t, err)
	_, err = other.GetDoc(ctx, "/")
	require.NoError(t, err)
	events, err := other.Stream(ctx, streamURL)
	require.NoError(t, err)
	require.Equal(t, []e2etest.Event{{Name: "done", Data: "{}"}}, events, "another session must not read the stream")

	updates := streamUpdates(t, server.client, doc, "#output")
	require.Equal(t, tutor.OutputBlock("hi\n")+"Good", updates[len(updates)-1].Text)
}

func Test_application_authentication(t *testing.T) {
	fake := testhelpers.NewFakeOpenAI(t, "Nice")
	server := startTestServer(t, fake, map[string]string{
		"TUTORAI_AUTH":     "true",
		auth.UsersEnv:      `["alice"]`,
		auth.AccessKeysEnv: `["` + auth.HashSecret("open sesame") + `"]`,
	})
	ctx := context.Background()
	client := server.client

	doc, err := client.GetDoc(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("form[action='/login']").Length())
	require.Equal(t, 0, doc.Find("#question").Length(), "questions are hidden before login")

	csrfToken, err := e2etest.ExtractCSRFToken(doc, "/login")
	require.NoError(t, err)

	// Tutoring actions bounce to the login page.
	resp, err := client.PostForm(ctx, "/run", csrfToken, url.Values{"code": {"print(1)"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/", resp.Request.URL.Path)

	resp, err = client.PostForm(ctx, "/login", csrfToken, url.Values{"username": {"alice"}, "access_key": {"wrong"}})
	require.NoError(t, err)
	doc, err = goquery.NewDocumentFromReader(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, loginFailedMessage, doc.Find("#login-error").Text())

	doc, err = client.Login(ctx, "alice", "open sesame")
	require.NoError(t, err)
	require.Contains(t, doc.Find("header").Text(), "Signed in as alice")
	require.True(t, strings.HasPrefix(questionText(doc), "1. Print hello"))

	doc, err = client.SubmitForm(ctx, "/", "/run", url.Values{"code": {"print('hi')"}})
	require.NoError(t, err)
	updates := streamUpdates(t, client, doc, "#output")
	require.Equal(t, tutor.OutputBlock("hi\n")+"Nice", updates[len(updates)-1].Text)

	access := readLog(t, server.logDir, "access.log")
	assert.Contains(t, access, "msg=AUTH_FAILED")
	assert.Contains(t, access, `details="Invalid access key for user: alice"`)
	assert.Contains(t, access, "msg=AUTH_SUCCESS")
	assert.NotContains(t, access, "open sesame")
	assert.Contains(t, readLog(t, server.logDir, "app_alice.log"), "msg=EXEC_START")

	doc, err = client.Logout(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("form[action='/login']").Length())
}

func Test_run_configurationErrors(t *testing.T) {
	fake := testhelpers.NewFakeOpenAI(t)
	tests := []struct {
		name    string
		mutate  func(env map[string]string)
		wantErr error
	}{
		{
			name:    "missing provider key",
			mutate:  func(env map[string]string) { delete(env, "OPENAI_API_KEY") },
			wantErr: envstruct.ErrEnvNotSet,
		},
		{
			name:    "authentication without users",
			mutate:  func(env map[string]string) { env["TUTORAI_AUTH"] = "true" },
			wantErr: errNoUsers,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testEnv(t, fake, t.TempDir(), nil)
			tt.mutate(env)
			err := run(context.Background(), testhelpers.NewLogger(io.Discard), testhelpers.LookupEnv(env))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func Test_forwardedFor(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: ""},
		{header: "for=203.0.113.7", want: "203.0.113.7"},
		{header: `for="[2001:db8::1]:4711";proto=https, for=10.0.0.1`, want: "[2001:db8::1]:4711"},
		{header: "proto=https;For=198.51.100.2", want: "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			require.Equal(t, tt.want, forwardedFor(tt.header))
		})
	}
}
