package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/example/rfe/internal/core/phase"
	"github.com/example/rfe/internal/wire"
)

// syncInterval paces the periodic session-status sweep while watching.
const syncInterval = 15 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch [workflow-id]",
	Short: "Watch a workflow's workspace and reconcile on changes",
	Long: `Watch the workflow workspace for artifact changes. Each change triggers a
reconcile, so the phase follows the filesystem live: an agent writing
specs/plan.md moves the workflow to tasks the moment the file lands, and
deleting it moves the workflow back.

In-flight sessions are synced periodically while watching.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workflowID := args[0]

		wf, err := wire.WorkflowService().GetWorkflow(cmd.Context(), workflowID)
		if err != nil {
			return fmt.Errorf("failed to get workflow: %w", err)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		defer watcher.Close()

		// Watch the workspace root and the specs dir when it exists.
		// fsnotify does not recurse; the artifacts all live in specs/.
		if err := watcher.Add(wf.WorkspacePath); err != nil {
			return fmt.Errorf("failed to watch workspace: %w", err)
		}
		specsDir := filepath.Join(wf.WorkspacePath, "specs")
		if _, err := os.Stat(specsDir); err == nil {
			if err := watcher.Add(specsDir); err != nil {
				return fmt.Errorf("failed to watch specs dir: %w", err)
			}
		}

		fmt.Printf("Watching %s (%s, phase %s). Ctrl-C to stop.\n", workflowID, wf.WorkspacePath, wf.CurrentPhase)

		lastPhase := wf.CurrentPhase
		ticker := time.NewTicker(syncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				// A freshly created specs dir must be added to the watch
				// before events inside it can be seen.
				if event.Op.Has(fsnotify.Create) && event.Name == specsDir {
					if err := watcher.Add(specsDir); err != nil {
						fmt.Fprintf(os.Stderr, "failed to watch specs dir: %v\n", err)
					}
				}
				if !strings.HasSuffix(event.Name, ".md") && event.Name != specsDir {
					continue
				}
				lastPhase = reportPhase(cmd, workflowID, lastPhase)
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
			case <-ticker.C:
				if resp, err := wire.SessionService().SyncSessions(cmd.Context(), workflowID); err == nil {
					for _, tr := range resp.Transitions {
						fmt.Printf("session %s (%s): %s → %s\n", tr.SessionID, tr.Persona, tr.From, tr.To)
					}
				}
				lastPhase = reportPhase(cmd, workflowID, lastPhase)
			}
		}
	},
}

// reportPhase reconciles and prints the phase when it moved.
func reportPhase(cmd *cobra.Command, workflowID string, lastPhase phase.Phase) phase.Phase {
	wf, err := wire.WorkflowService().GetWorkflow(cmd.Context(), workflowID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile failed: %v\n", err)
		return lastPhase
	}
	if wf.CurrentPhase != lastPhase {
		direction := "→"
		if wf.PhaseRegressed {
			direction = "← regressed to"
		}
		fmt.Printf("phase %s %s\n", direction, wf.CurrentPhase)
		if phase.IsTerminal(wf.CurrentPhase) {
			fmt.Printf("✓ Workflow %s completed\n", workflowID)
		}
	}
	return wf.CurrentPhase
}

// WatchCmd returns the watch command
func WatchCmd() *cobra.Command {
	return watchCmd
}
