package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/rfe/internal/core/phase"
	"github.com/example/rfe/internal/ports/primary"
	"github.com/example/rfe/internal/wire"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Manage RFE workflows",
	Long:  "Create, inspect, and advance RFE workflows through their phases",
}

var workflowCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		repoURL, _ := cmd.Flags().GetString("repo")
		branch, _ := cmd.Flags().GetString("branch")
		agents, _ := cmd.Flags().GetStringSlice("agents")
		workspace, _ := cmd.Flags().GetString("workspace")

		resp, err := wire.WorkflowService().CreateWorkflow(cmd.Context(), primary.CreateWorkflowRequest{
			Title:       args[0],
			Description: description,
			TargetRepository: primary.TargetRepository{
				URL:    repoURL,
				Branch: branch,
			},
			SelectedAgents: agents,
			WorkspacePath:  workspace,
		})
		if err != nil {
			return fmt.Errorf("failed to create workflow: %w", err)
		}

		fmt.Printf("✓ Created workflow %s: %s\n", resp.WorkflowID, resp.Workflow.Title)
		fmt.Printf("  Workspace: %s\n", resp.Workflow.WorkspacePath)
		return nil
	},
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		phaseFilter, _ := cmd.Flags().GetString("phase")
		limit, _ := cmd.Flags().GetInt("limit")

		workflows, err := wire.WorkflowService().ListWorkflows(cmd.Context(), primary.WorkflowFilters{
			Status: status,
			Phase:  phaseFilter,
			Limit:  limit,
		})
		if err != nil {
			return fmt.Errorf("failed to list workflows: %w", err)
		}

		if len(workflows) == 0 {
			fmt.Println("No workflows found")
			return nil
		}

		fmt.Printf("\n%-10s %-10s %-10s %s\n", "ID", "PHASE", "STATUS", "TITLE")
		fmt.Println("────────────────────────────────────────────────────────────────")
		for _, wf := range workflows {
			fmt.Printf("%-10s %-10s %-10s %s\n", wf.ID, wf.CurrentPhase, wf.Status, wf.Title)
		}
		fmt.Println()
		return nil
	},
}

var workflowShowCmd = &cobra.Command{
	Use:   "show [workflow-id]",
	Short: "Show workflow details and phase progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := wire.WorkflowService().GetWorkflow(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get workflow: %w", err)
		}

		fmt.Printf("\nWorkflow: %s\n", wf.ID)
		fmt.Printf("Title:    %s\n", wf.Title)
		fmt.Printf("Phase:    %s%s\n", wf.CurrentPhase, regressionMarker(wf))
		fmt.Printf("Status:   %s\n", wf.Status)
		fmt.Printf("Repo:     %s (%s)\n", wf.TargetRepository.URL, wf.TargetRepository.Branch)
		fmt.Printf("Workspace: %s\n", wf.WorkspacePath)
		fmt.Printf("Agents:   %v\n", wf.SelectedAgents)
		fmt.Printf("Created:  %s\n", wf.CreatedAt)
		fmt.Println()

		fmt.Println("Artifacts:")
		printPhaseSummary(wf.CurrentPhase)
		fmt.Println()

		sessions, err := wire.SessionService().ListSessions(cmd.Context(), wf.ID, "")
		if err == nil && len(sessions) > 0 {
			fmt.Println("Sessions:")
			for _, s := range sessions {
				fmt.Printf("  - %s [%s] %s/%s\n", s.ID, s.Status, s.Phase, s.AgentPersona)
			}
			fmt.Println()
		}
		return nil
	},
}

var workflowAdvanceCmd = &cobra.Command{
	Use:   "advance [workflow-id]",
	Short: "Check readiness and surface the next phase",
	Long: `Reconcile the workflow against its workspace and report whether it can
move on. The phase itself only changes through artifact evidence: advance
tells you whether the current phase's artifact exists and which phase's
sessions to launch next.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if force, _ := cmd.Flags().GetBool("force"); force {
			return fmt.Errorf("advancement cannot be forced: the phase follows the artifacts in the workspace, produce the current phase's artifact instead")
		}

		resp, err := wire.WorkflowService().AdvanceWorkflow(cmd.Context(), args[0])
		if err != nil {
			var blocked *primary.AdvancementBlockedError
			if errors.As(err, &blocked) {
				if blocked.MissingArtifact != "" {
					return fmt.Errorf("blocked: %s is missing (phase %s)", blocked.MissingArtifact, blocked.CurrentPhase)
				}
				return fmt.Errorf("blocked: %s", blocked.Reason)
			}
			return fmt.Errorf("failed to advance workflow: %w", err)
		}

		wf := resp.Workflow
		if phase.IsTerminal(wf.CurrentPhase) {
			fmt.Printf("✓ Workflow %s is completed, all artifacts exist\n", wf.ID)
			return nil
		}
		fmt.Printf("✓ Workflow %s is in phase %s\n", wf.ID, wf.CurrentPhase)
		fmt.Printf("  Next: rfe session start %s --phase %s\n", wf.ID, resp.NextPhase)
		return nil
	},
}

var workflowUpdateCmd = &cobra.Command{
	Use:   "update [workflow-id]",
	Short: "Update workflow title, description, or agents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		agents, _ := cmd.Flags().GetStringSlice("agents")

		if title == "" && description == "" && len(agents) == 0 {
			return fmt.Errorf("nothing to update - pass --title, --description, or --agents")
		}

		req := primary.UpdateWorkflowRequest{
			WorkflowID:  args[0],
			Title:       title,
			Description: description,
		}
		if len(agents) > 0 {
			req.SelectedAgents = agents
		}
		if err := wire.WorkflowService().UpdateWorkflow(cmd.Context(), req); err != nil {
			return fmt.Errorf("failed to update workflow: %w", err)
		}
		fmt.Printf("✓ Workflow %s updated\n", args[0])
		return nil
	},
}

var workflowPauseCmd = &cobra.Command{
	Use:   "pause [workflow-id]",
	Short: "Pause a workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.WorkflowService().PauseWorkflow(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to pause workflow: %w", err)
		}
		fmt.Printf("✓ Workflow %s paused (in-flight sessions keep running)\n", args[0])
		return nil
	},
}

var workflowResumeCmd = &cobra.Command{
	Use:   "resume [workflow-id]",
	Short: "Resume a paused workflow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.WorkflowService().ResumeWorkflow(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to resume workflow: %w", err)
		}
		fmt.Printf("✓ Workflow %s resumed\n", args[0])
		return nil
	},
}

var workflowDeleteCmd = &cobra.Command{
	Use:   "delete [workflow-id]",
	Short: "Delete a workflow and its session records",
	Long:  "Remove the workflow and its sessions from the ledger. Workspace artifacts are left in place.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.WorkflowService().DeleteWorkflow(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete workflow: %w", err)
		}
		fmt.Printf("✓ Workflow %s deleted (workspace left in place)\n", args[0])
		return nil
	},
}

// printPhaseSummary renders one line per gated artifact. The check marks are
// read off the derived phase: every phase ordered before it has its artifact.
func printPhaseSummary(current phase.Phase) {
	check := color.New(color.FgGreen).Sprint("✓")
	cross := color.New(color.FgRed).Sprint("✗")
	for _, def := range phase.Definitions() {
		mark := cross
		if phase.Before(def.Phase, current) {
			mark = check
		}
		marker := ""
		if def.Phase == current {
			marker = color.New(color.FgHiMagenta).Sprint(" ←")
		}
		fmt.Printf("  %s %-8s %s%s\n", mark, def.Label, def.ArtifactPath, marker)
	}
}

func regressionMarker(wf *primary.Workflow) string {
	if !wf.PhaseRegressed {
		return ""
	}
	return color.New(color.FgYellow).Sprint(" [regressed]")
}

// WorkflowCmd returns the workflow command
func WorkflowCmd() *cobra.Command {
	// Add flags
	workflowCreateCmd.Flags().StringP("description", "d", "", "Workflow description (fed to agent prompts)")
	workflowCreateCmd.Flags().StringP("repo", "r", "", "Target repository URL")
	workflowCreateCmd.Flags().StringP("branch", "b", "", "Target repository branch (default: main)")
	workflowCreateCmd.Flags().StringSliceP("agents", "a", nil, "Selected agent personas (1-8)")
	workflowCreateCmd.Flags().StringP("workspace", "w", "", "Custom workspace path (default: <workspace base>/RFE-ID)")
	workflowListCmd.Flags().StringP("status", "s", "", "Filter by status (active, paused, completed, failed)")
	workflowListCmd.Flags().StringP("phase", "p", "", "Filter by phase (pre, specify, plan, tasks, completed)")
	workflowListCmd.Flags().IntP("limit", "n", 0, "Limit the number of results")
	workflowAdvanceCmd.Flags().Bool("force", false, "Rejected: advancement only happens through artifact evidence")
	workflowUpdateCmd.Flags().StringP("title", "t", "", "New workflow title")
	workflowUpdateCmd.Flags().StringP("description", "d", "", "New workflow description")
	workflowUpdateCmd.Flags().StringSliceP("agents", "a", nil, "New selected agent personas")

	// Add subcommands
	workflowCmd.AddCommand(workflowCreateCmd)
	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowShowCmd)
	workflowCmd.AddCommand(workflowAdvanceCmd)
	workflowCmd.AddCommand(workflowUpdateCmd)
	workflowCmd.AddCommand(workflowPauseCmd)
	workflowCmd.AddCommand(workflowResumeCmd)
	workflowCmd.AddCommand(workflowDeleteCmd)

	return workflowCmd
}
