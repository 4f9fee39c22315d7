package questions_test

import (
	"github.com/myrjola/tutorai/internal/questions"
	"github.com/myrjola/tutorai/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeQuestions(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "blank line separated",
			content: "1. First\nline two\n\n2. Second\n\n\n3. Third\n",
			want:    []string{"1. First\nline two", "2. Second", "3. Third"},
		},
		{
			name:    "windows line endings",
			content: "1. First\r\n\r\n2. Second",
			want:    []string{"1. First", "2. Second"},
		},
		{
			name:    "empty file",
			content: "  \n\n  ",
			want:    []string{questions.Placeholder},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := questions.Load(writeQuestions(t, tt.content))
			require.NoError(t, err)
			require.Equal(t, len(tt.want), catalog.Len())
			for i, text := range tt.want {
				assert.Equal(t, questions.Question{ID: i, Text: text}, catalog.At(i))
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	catalog, err := questions.Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	require.NotNil(t, catalog)
	require.Equal(t, 1, catalog.Len())
	require.Equal(t, questions.Placeholder, catalog.At(0).Text)
}

func TestNavigationRoundTrip(t *testing.T) {
	for n := 1; n <= 5; n++ {
		texts := make([]string, n)
		for i := range texts {
			texts[i] = string(rune('a' + i))
		}
		catalog := questions.New(texts)
		for i := range n {
			next, _ := catalog.Next(i)
			back, q := catalog.Previous(next)
			require.Equal(t, i, back, "next then previous, n=%d", n)
			require.Equal(t, i, q.ID)

			prev, _ := catalog.Previous(i)
			forward, _ := catalog.Next(prev)
			require.Equal(t, i, forward, "previous then next, n=%d", n)
		}
	}
}

func TestNavigationWraps(t *testing.T) {
	catalog := questions.New([]string{"q0", "q1", "q2"})

	i := 0
	var q questions.Question
	for _, want := range []int{1, 2, 0} {
		i, q = catalog.Next(i)
		require.Equal(t, want, i)
		require.Equal(t, want, q.ID)
	}

	i, q = catalog.Previous(0)
	require.Equal(t, 2, i)
	require.Equal(t, "q2", q.Text)

	require.Equal(t, "q1", catalog.At(7).Text)
	require.Equal(t, "q2", catalog.At(-1).Text)
}

func TestLibraryReload(t *testing.T) {
	path := writeQuestions(t, "1. One")
	library := questions.NewLibrary(path, testhelpers.NewLogger(io.Discard))
	snapshot := library.Current()
	require.Equal(t, 1, snapshot.Len())

	require.NoError(t, os.WriteFile(path, []byte("1. One\n\n2. Two"), 0o600))
	library.Reload()

	require.Equal(t, 2, library.Current().Len())
	require.Equal(t, 1, snapshot.Len(), "existing snapshots must not change")
}
