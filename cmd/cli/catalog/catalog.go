// Package catalog holds the commands for inspecting the question catalog.
package catalog

import (
	"fmt"
	"github.com/myrjola/tutorai/internal/errors"
	"github.com/myrjola/tutorai/internal/questions"
	"github.com/spf13/cobra"
	"log/slog"
)

const defaultPath = "data/questions.txt"

var Group = &cobra.Group{
	ID:    "questions",
	Title: "Questions",
}

// NewQuestions returns the command that prints the catalog the server would load from a question file.
func NewQuestions() *cobra.Command {
	return &cobra.Command{
		Use:     "questions [path]",
		GroupID: Group.ID,
		Short:   "Print the question catalog",
		Long: "Loads the question file like the server does and prints every question with its position. " +
			"Defaults to " + defaultPath + ".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultPath
			if len(args) == 1 {
				path = args[0]
			}
			catalog, err := questions.Load(path)
			if err != nil {
				return errors.Wrap(err, "load questions", slog.String("path", path))
			}
			out := cmd.OutOrStdout()
			for _, q := range catalog.All() {
				if _, err = fmt.Fprintf(out, "--- %d/%d ---\n%s\n", q.ID+1, catalog.Len(), q.Text); err != nil {
					return errors.Wrap(err, "print question")
				}
			}
			return nil
		},
	}
}
