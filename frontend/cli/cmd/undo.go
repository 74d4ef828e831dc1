package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conjureai/conjure/backend/config"
	"github.com/conjureai/conjure/backend/history"
)

type undoOptions struct {
	last bool
}

func NewUndoCmd() *cobra.Command {
	options := &undoOptions{}

	cmd := &cobra.Command{
		Use:   "undo [session-id]",
		Short: "Undo the actions of a recorded session",
		Long: `Undo the actions of a recorded session.

Without a session id the most recent session is used. Commands and
directory deletions cannot be undone and are reported as skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			globals := getGlobalOptions(cmd.Context())
			cfg, err := config.Load(globals.ProjectDir)
			if err != nil {
				return err
			}

			fs := afero.NewOsFs()
			store, err := history.NewStore(fs, filepath.Join(cfg.StateDir, "sessions"))
			if err != nil {
				return err
			}

			session, err := resolveSession(store, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if options.last {
				result := session.UndoLast()
				fmt.Fprintln(out, result.Message)
				if !result.Success {
					return fmt.Errorf("undo failed")
				}
				return store.Save(session)
			}

			ok, results := session.UndoAll()
			for _, result := range results {
				status := "ok"
				if !result.Success {
					status = "skipped"
				}
				fmt.Fprintf(out, "[%s] %s\n", status, result.Message)
			}
			if err := store.Save(session); err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Some actions could not be undone.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&options.last, "last", false, "undo only the most recent action")
	return cmd
}

func resolveSession(store *history.Store, args []string) (*history.Session, error) {
	if len(args) == 1 {
		return store.Load(args[0])
	}
	sessions, err := store.List()
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no recorded sessions")
	}
	return sessions[0], nil
}
