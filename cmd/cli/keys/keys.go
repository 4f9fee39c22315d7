// Package keys holds the commands for managing access keys.
package keys

import (
	"fmt"
	"github.com/myrjola/tutorai/internal/auth"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "keys",
	Title: "Access keys",
}

// NewHashKey returns the command that prints the digest of an access key for the ACCESS_KEYS list.
func NewHashKey() *cobra.Command {
	return &cobra.Command{
		Use:     "hash-key <access-key>",
		GroupID: Group.ID,
		Short:   "Print the SHA-256 digest of an access key",
		Long: "Prints the hex encoded SHA-256 digest of the given access key. Add the digest to " +
			auth.AccessKeysEnv + " at the same position as the username in " + auth.UsersEnv + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), auth.HashSecret(args[0]))
			return err //nolint:wrapcheck // cobra prints the error as is
		},
	}
}
