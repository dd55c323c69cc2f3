// Package tmux contains the tmux-backed agent runner adapter. Each launched
// persona session becomes a window in a per-workflow tmux session, running
// the configured agent CLI with the composed prompt.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/GianlucaP106/gotmux/gotmux"

	"github.com/example/rfe/internal/ports/secondary"
)

// Runner implements secondary.AgentRunner on top of local tmux.
type Runner struct {
	tmux         *gotmux.Tmux
	agentCommand string
}

// NewRunner creates a tmux agent runner. agentCommand is the CLI started in
// each window (e.g. "claude").
func NewRunner(agentCommand string) (*Runner, error) {
	t, err := gotmux.DefaultTmux()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", secondary.ErrAgentUnavailable, err)
	}
	return &Runner{tmux: t, agentCommand: agentCommand}, nil
}

// Launch starts one persona session as a tmux window and returns its
// "session:window" target as the handle.
func (r *Runner) Launch(ctx context.Context, spec secondary.LaunchSpec) (string, error) {
	sessionName := sessionNameFor(spec.WorkflowID)
	windowName := windowNameFor(spec.Phase, spec.Persona)
	target := sessionName + ":" + windowName

	session, err := r.getSession(sessionName)
	if err != nil {
		return "", err
	}
	if session == nil {
		session, err = r.tmux.NewSession(&gotmux.SessionOptions{
			Name:           sessionName,
			StartDirectory: spec.WorkspacePath,
		})
		if err != nil {
			return "", fmt.Errorf("%w: creating session %s: %v", secondary.ErrAgentUnavailable, sessionName, err)
		}
		// The auto-created first window hosts the first launch.
		windows, err := session.ListWindows()
		if err != nil || len(windows) == 0 {
			return "", fmt.Errorf("%w: no window in new session %s", secondary.ErrAgentUnavailable, sessionName)
		}
		if err := windows[0].Rename(windowName); err != nil {
			return "", fmt.Errorf("%w: naming window: %v", secondary.ErrAgentUnavailable, err)
		}
	} else {
		if w, _ := session.GetWindowByName(windowName); w != nil {
			return "", fmt.Errorf("%w: window %s already exists, stop it before relaunching", secondary.ErrAgentUnavailable, target)
		}
		if _, err := session.NewWindow(&gotmux.NewWindowOptions{
			WindowName:     windowName,
			StartDirectory: spec.WorkspacePath,
		}); err != nil {
			return "", fmt.Errorf("%w: creating window %s: %v", secondary.ErrAgentUnavailable, target, err)
		}
	}

	// No ShellCommand on window creation - type the agent invocation into
	// the fresh shell instead.
	launch := fmt.Sprintf("%s %s", r.agentCommand, shellQuote(spec.Prompt))
	if err := sendKeys(ctx, target, launch); err != nil {
		return "", fmt.Errorf("%w: starting agent in %s: %v", secondary.ErrAgentUnavailable, target, err)
	}

	return target, nil
}

// Status reports the state of a launched session by inspecting its window.
// A live pane still running the agent command is running; a pane whose
// agent exited back to the shell, or a window that is gone, counts as
// completed - artifact evidence, not this status, decides phase completion.
func (r *Runner) Status(ctx context.Context, handle string) (string, error) {
	sessionName, windowName, ok := strings.Cut(handle, ":")
	if !ok {
		return "", fmt.Errorf("malformed session handle %q", handle)
	}

	session, err := r.getSession(sessionName)
	if err != nil {
		return "", err
	}
	if session == nil {
		return secondary.SessionStopped, nil
	}
	window, err := session.GetWindowByName(windowName)
	if err != nil || window == nil {
		return secondary.SessionCompleted, nil
	}

	panes, err := window.ListPanes()
	if err != nil || len(panes) == 0 {
		return secondary.SessionCompleted, nil
	}
	for _, pane := range panes {
		if pane.Dead {
			return secondary.SessionFailed, nil
		}
	}

	current, err := paneCommand(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("%w: %v", secondary.ErrAgentUnavailable, err)
	}
	if strings.Contains(current, baseCommand(r.agentCommand)) {
		return secondary.SessionRunning, nil
	}
	return secondary.SessionCompleted, nil
}

// Stop kills the session's window. A window that already exited is fine.
func (r *Runner) Stop(ctx context.Context, handle string) error {
	cmd := exec.CommandContext(ctx, "tmux", "kill-window", "-t", handle)
	if err := cmd.Run(); err != nil {
		sessionName, windowName, _ := strings.Cut(handle, ":")
		session, gerr := r.getSession(sessionName)
		if gerr != nil || session == nil {
			return nil
		}
		if w, _ := session.GetWindowByName(windowName); w == nil {
			return nil
		}
		return fmt.Errorf("failed to stop session %s: %w", handle, err)
	}
	return nil
}

func (r *Runner) getSession(name string) (*gotmux.Session, error) {
	sessions, err := r.tmux.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("%w: listing tmux sessions: %v", secondary.ErrAgentUnavailable, err)
	}
	for _, s := range sessions {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, nil
}

func sessionNameFor(workflowID string) string {
	return "rfe-" + strings.ToLower(workflowID)
}

func windowNameFor(phase, persona string) string {
	p := strings.ToLower(strings.ReplaceAll(persona, "_", "-"))
	return phase + "-" + p
}

func sendKeys(ctx context.Context, target, keys string) error {
	cmd := exec.CommandContext(ctx, "tmux", "send-keys", "-t", target, keys, "C-m")
	return cmd.Run()
}

func paneCommand(ctx context.Context, target string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", "display-message", "-p", "-t", target, "#{pane_current_command}")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// shellQuote single-quotes a prompt for the shell, escaping embedded quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// baseCommand strips arguments so "claude --dangerously..." matches the
// pane's reported command.
func baseCommand(agentCommand string) string {
	fields := strings.Fields(agentCommand)
	if len(fields) == 0 {
		return agentCommand
	}
	return fields[0]
}
