package sandbox_test

import (
	"context"
	"github.com/myrjola/tutorai/internal/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

func TestStarlark_Execute(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantFault bool
		want      string
		contains  string
	}{
		{name: "prints", src: "print('hi')", want: "hi\n"},
		{name: "multiple prints", src: "for i in range(3):\n    print(i)\n", want: "0\n1\n2\n"},
		{name: "print with separator", src: "print('a', 'b')", want: "a b\n"},
		{name: "empty source", src: "", want: sandbox.NoOutput},
		{name: "whitespace source", src: "  \n\t\n", want: sandbox.NoOutput},
		{name: "no print", src: "x = 1 + 2", want: sandbox.NoOutput},
		{name: "prints whitespace", src: "print('   ')", want: sandbox.NoOutput},
		{name: "division by zero", src: "1/0", wantFault: true, contains: "division"},
		{name: "integer division by zero", src: "x = 1 // 0", wantFault: true, contains: "division"},
		{name: "syntax error", src: "print('unclosed'", wantFault: true, contains: "main.py"},
		{name: "undefined name", src: "print(name)", wantFault: true, contains: "undefined: name"},
		{name: "load is disabled", src: "load('os.star', 'system')", wantFault: true, contains: "load"},
		{name: "while loops and sets", src: "s = set([1, 1, 2])\nn = 0\nwhile n < len(s):\n    n += 1\nprint(n)", want: "2\n"},
	}
	executor := sandbox.NewStarlark(time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := executor.Execute(context.Background(), tt.src)
			require.Equal(t, tt.wantFault, result.IsFault(), "result: %s", result.Text())
			if tt.contains != "" {
				assert.Contains(t, result.Text(), tt.contains)
			} else {
				assert.Equal(t, tt.want, result.Text())
			}
		})
	}
}

func TestStarlark_ExecuteIsolatesNamespace(t *testing.T) {
	executor := sandbox.NewStarlark(time.Second)

	first := executor.Execute(context.Background(), "secret = 42\nprint(secret)")
	require.False(t, first.IsFault())
	require.Equal(t, "42\n", first.Text())

	second := executor.Execute(context.Background(), "print(secret)")
	require.True(t, second.IsFault(), "bindings must not survive between executions")
}

func TestStarlark_ExecuteTimeout(t *testing.T) {
	executor := sandbox.NewStarlark(50 * time.Millisecond)

	start := time.Now()
	result := executor.Execute(context.Background(), "while True:\n    pass\n")
	require.True(t, result.IsFault())
	require.Contains(t, result.Text(), "timed out")
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestStarlark_ExecuteCancelled(t *testing.T) {
	executor := sandbox.NewStarlark(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	result := executor.Execute(ctx, "while True:\n    pass\n")
	require.True(t, result.IsFault())
	require.Equal(t, "execution cancelled", result.Text())
}

func TestStarlark_ExecuteConcurrently(t *testing.T) {
	executor := sandbox.NewStarlark(time.Second)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := executor.Execute(context.Background(), "x = "+string(rune('0'+i))+"\nprint(x)")
			assert.Equal(t, string(rune('0'+i))+"\n", result.Text())
		}()
	}
	wg.Wait()
}

func TestResult(t *testing.T) {
	require.Equal(t, sandbox.NoOutput, sandbox.Output("").String())
	require.Equal(t, "done\n", sandbox.Output("done\n").String())
	require.Equal(t, "**Error:** boom", sandbox.Fault("boom").String())
	require.Equal(t, "boom", sandbox.Fault("boom").Text())
}
