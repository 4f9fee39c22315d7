// Package questions holds the ordered exercise catalog that learners step through.
package questions

import (
	"github.com/myrjola/tutorai/internal/errors"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Placeholder is served when the question source is missing, unreadable or empty.
const Placeholder = "1. Hello, Python! Write a Python program that prints:\nHello, World!"

// Question is a single exercise. ID is the position in the catalog.
type Question struct {
	ID   int
	Text string
}

// Catalog is an immutable, never empty, ordered list of questions.
type Catalog struct {
	questions []Question
}

// New creates a catalog from texts. Blank entries are skipped and the placeholder is used if nothing remains.
func New(texts []string) *Catalog {
	qs := make([]Question, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		qs = append(qs, Question{ID: len(qs), Text: text})
	}
	if len(qs) == 0 {
		qs = append(qs, Question{ID: 0, Text: Placeholder})
	}
	return &Catalog{questions: qs}
}

// Parse splits src into questions separated by blank lines.
func Parse(src string) *Catalog {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return New(strings.Split(src, "\n\n"))
}

// Load reads the question file at path.
//
// Load always returns a usable catalog. A read failure yields the placeholder catalog together with the error so that
// the caller can log it. An empty file yields the placeholder catalog and no error.
func Load(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return New(nil), errors.Wrap(err, "read questions", slog.String("path", path))
	}
	return Parse(string(content)), nil
}

// Len returns the number of questions. It is at least one.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// At returns the question at index modulo the catalog length. Negative indices count backwards.
func (c *Catalog) At(index int) Question {
	return c.questions[c.wrap(index)]
}

// Next returns the index after index and its question, wrapping to the start.
func (c *Catalog) Next(index int) (int, Question) {
	i := c.wrap(index + 1)
	return i, c.questions[i]
}

// Previous returns the index before index and its question, wrapping to the end.
func (c *Catalog) Previous(index int) (int, Question) {
	i := c.wrap(index - 1)
	return i, c.questions[i]
}

// Current returns c itself so that a fixed catalog can be used wherever a [Library] is.
func (c *Catalog) Current() *Catalog {
	return c
}

// All returns a copy of the questions.
func (c *Catalog) All() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

func (c *Catalog) wrap(index int) int {
	n := len(c.questions)
	return ((index % n) + n) % n
}

// Library gives concurrent readers the current catalog and allows swapping it for a freshly loaded one.
type Library struct {
	path    string
	current atomic.Pointer[Catalog]
	logger  *slog.Logger
}

// NewLibrary loads the catalog at path. A load failure is logged and the placeholder catalog is served.
func NewLibrary(path string, logger *slog.Logger) *Library {
	l := &Library{path: path, logger: logger} //nolint:exhaustruct // current is stored by Reload
	l.Reload()
	return l
}

// Current returns the catalog in use. In-flight callers keep their snapshot across a Reload.
func (l *Library) Current() *Catalog {
	return l.current.Load()
}

// Reload reads the question file again and atomically replaces the current catalog.
func (l *Library) Reload() {
	catalog, err := Load(l.path)
	if err != nil {
		l.logger.Warn("questions unavailable, using placeholder", errors.SlogError(err))
	}
	l.current.Store(catalog)
	l.logger.Info("loaded questions", slog.String("path", l.path), slog.Int("count", catalog.Len()))
}
