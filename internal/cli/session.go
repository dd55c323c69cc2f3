package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/rfe/internal/core/phase"
	"github.com/example/rfe/internal/ports/primary"
	"github.com/example/rfe/internal/wire"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage agent sessions",
	Long:  "Launch, list, and sync the per-persona agent sessions of a workflow",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start [workflow-id]",
	Short: "Launch phase sessions for the selected personas",
	Long: `Launch one agent session per persona for a workflow phase.

Without --phase the workflow's current phase is used. Personas default to
the workflow's selected agents. Re-running a phase whose artifact already
exists requires --regenerate.

Examples:
  rfe session start RFE-001
  rfe session start RFE-001 --phase plan --agents STAFF_ENGINEER
  rfe session start RFE-001 --phase specify --regenerate`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workflowID := args[0]
		phaseName, _ := cmd.Flags().GetString("phase")
		agents, _ := cmd.Flags().GetStringSlice("agents")
		regenerate, _ := cmd.Flags().GetBool("regenerate")

		target := phase.Phase(phaseName)
		if phaseName == "" {
			wf, err := wire.WorkflowService().GetWorkflow(cmd.Context(), workflowID)
			if err != nil {
				return fmt.Errorf("failed to get workflow: %w", err)
			}
			entry, ok := phase.EntryPhase(wf.CurrentPhase)
			if !ok {
				return fmt.Errorf("workflow %s is completed - pass --phase and --regenerate to re-run a phase", workflowID)
			}
			target = entry
		}

		resp, err := wire.SessionService().StartPhaseSessions(cmd.Context(), primary.StartPhaseSessionsRequest{
			WorkflowID: workflowID,
			Phase:      target,
			Personas:   agents,
			Regenerate: regenerate,
		})
		if err != nil && resp == nil {
			var notReady *primary.PhaseNotReadyError
			if errors.As(err, &notReady) {
				return fmt.Errorf("cannot start %s sessions: %s", notReady.RequestedPhase, notReady.Reason)
			}
			return fmt.Errorf("failed to start sessions: %w", err)
		}

		if resp.Rerun {
			fmt.Printf("Re-running phase %s (existing artifact will be overwritten)\n", target)
		}
		for _, s := range resp.Sessions {
			fmt.Printf("✓ Launched %s session for %s (%s)\n", s.Phase, s.AgentPersona, s.ID)
		}
		if err != nil {
			// Partial failure: the launched sessions above are real.
			return fmt.Errorf("some sessions failed to launch: %w", err)
		}
		fmt.Printf("\nSessions write to the workflow workspace. Track them with:\n")
		fmt.Printf("  rfe session list %s\n", workflowID)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list [workflow-id]",
	Short: "List a workflow's sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		phaseName, _ := cmd.Flags().GetString("phase")

		sessions, err := wire.SessionService().ListSessions(cmd.Context(), args[0], phase.Phase(phaseName))
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found")
			return nil
		}

		fmt.Printf("\n%-38s %-9s %-10s %s\n", "ID", "PHASE", "STATUS", "PERSONA")
		fmt.Println("────────────────────────────────────────────────────────────────────────")
		for _, s := range sessions {
			fmt.Printf("%-38s %-9s %-10s %s\n", s.ID, s.Phase, s.Status, s.AgentPersona)
		}
		fmt.Println()
		return nil
	},
}

var sessionSyncCmd = &cobra.Command{
	Use:   "sync [workflow-id]",
	Short: "Poll the runner and record session status changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := wire.SessionService().SyncSessions(cmd.Context(), args[0])
		if err != nil && resp == nil {
			return fmt.Errorf("failed to sync sessions: %w", err)
		}

		if resp.Checked == 0 {
			fmt.Println("No in-flight sessions")
			return err
		}
		fmt.Printf("Checked %d in-flight session(s)\n", resp.Checked)
		for _, tr := range resp.Transitions {
			fmt.Printf("  %s (%s): %s → %s\n", tr.SessionID, tr.Persona, tr.From, tr.To)
		}
		if len(resp.Transitions) == 0 {
			fmt.Println("  no changes")
		}
		return err
	},
}

var sessionStopCmd = &cobra.Command{
	Use:   "stop [session-id]",
	Short: "Stop a running session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.SessionService().StopSession(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to stop session: %w", err)
		}
		fmt.Printf("✓ Session %s stopped\n", args[0])
		return nil
	},
}

// SessionCmd returns the session command
func SessionCmd() *cobra.Command {
	// Add flags
	sessionStartCmd.Flags().StringP("phase", "p", "", "Phase to launch (default: the workflow's current phase)")
	sessionStartCmd.Flags().StringSliceP("agents", "a", nil, "Personas to launch (default: the workflow's selected agents)")
	sessionStartCmd.Flags().Bool("regenerate", false, "Confirm re-running a phase whose artifact already exists")
	sessionListCmd.Flags().StringP("phase", "p", "", "Filter by phase")

	// Add subcommands
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionSyncCmd)
	sessionCmd.AddCommand(sessionStopCmd)

	return sessionCmd
}
