package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conjureai/conjure/backend/config"
	"github.com/conjureai/conjure/backend/history"
)

func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions [session-id]",
		Short: "List recorded sessions or show one in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			globals := getGlobalOptions(cmd.Context())
			cfg, err := config.Load(globals.ProjectDir)
			if err != nil {
				return err
			}

			store, err := history.NewStore(afero.NewOsFs(), filepath.Join(cfg.StateDir, "sessions"))
			if err != nil {
				return err
			}

			if len(args) == 1 {
				session, err := store.Load(args[0])
				if err != nil {
					return err
				}
				printSession(cmd, session)
				return nil
			}

			sessions, err := store.List()
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recorded sessions.")
				return nil
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Started", "Actions", "Prompt"})
			table.SetBorder(false)
			for _, session := range sessions {
				table.Append([]string{
					session.ID,
					session.StartTime.Format(time.RFC3339),
					fmt.Sprintf("%d", session.Len()),
					truncate(session.Prompt, 60),
				})
			}
			table.Render()
			return nil
		},
	}
	return cmd
}

func printSession(cmd *cobra.Command, session *history.Session) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session %s\n", session.ID)
	fmt.Fprintf(out, "Started: %s\n", session.StartTime.Format(time.RFC3339))
	if session.EndTime != nil {
		fmt.Fprintf(out, "Ended:   %s\n", session.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(out, "Project: %s\n", session.ProjectRoot)
	fmt.Fprintf(out, "Prompt:  %s\n\n", session.Prompt)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Type", "Target", "Undone"})
	table.SetBorder(false)
	for _, action := range session.Actions {
		target := action.Path
		if action.Type == history.ActionCommand {
			target = shellescape.QuoteCommand(append([]string{action.Command}, action.Args...))
		}
		table.Append([]string{string(action.Type), truncate(target, 70), fmt.Sprintf("%t", action.Undone)})
	}
	table.Render()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
