package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leanspec/leanspec/internal/session"
)

func init() {
	sessionCmd.AddCommand(sessionCreateCmd, sessionStartCmd, sessionRunCmd, sessionPauseCmd,
		sessionResumeCmd, sessionStopCmd, sessionListCmd, sessionViewCmd, sessionLogsCmd,
		sessionArchiveCmd, sessionRotateLogsCmd, sessionDeleteCmd)
	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Supervise external AI-assistant processes",
}

var (
	sessTool           string
	sessMode           string
	sessSpec           string
	sessMaxIterations  int
	sessMaxDuration    time.Duration
	sessCompletionMark string
)

func addSessionStartFlags(c *cobra.Command) {
	c.Flags().StringVar(&sessTool, "tool", "claude", "runner id")
	c.Flags().StringVar(&sessMode, "mode", string(session.ModeAutonomous), "guided|autonomous|ralph")
	c.Flags().StringVar(&sessSpec, "spec", "", "spec path the session should work from")
	c.Flags().IntVar(&sessMaxIterations, "max-iterations", 0, "cap on autonomous/ralph-mode turns (0 = mode default)")
	c.Flags().DurationVar(&sessMaxDuration, "max-duration", 0, "wall-clock cap on a ralph-mode loop (0 = unbounded)")
	c.Flags().StringVar(&sessCompletionMark, "ralph-marker", "", "ralph-mode stop condition: substring to watch for in session logs")
}

func startSession(ctx context.Context) (*session.Session, error) {
	_, cfg, logger, err := specEngine()
	if err != nil {
		return nil, err
	}
	mgr, err := sessionManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	mode := session.Mode(sessMode)
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid mode: %s", sessMode)
	}
	runCfg := session.DefaultConfig()
	runCfg.ProjectPath = projectPath
	runCfg.SpecID = sessSpec
	runCfg.Tool = sessTool
	runCfg.Mode = mode
	runCfg.MaxIterations = sessMaxIterations
	runCfg.MaxDuration = sessMaxDuration
	runCfg.CompletionMarker = sessCompletionMark
	return mgr.Start(ctx, runCfg)
}

// sessionCreateCmd and sessionStartCmd are the same operation under two
// verbs: SPEC_FULL.md's CLI table lists both "create" and "start" as
// session-lifecycle subcommands, mirroring the distinction between
// registering intent and spawning the process kept in some of the original
// tool's workflows; here both immediately launch the supervised process.
var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a new supervised AI-assistant session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := startSession(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("session %s started (tool=%s mode=%s)\n", sess.ID, sess.Tool, sess.Mode)
		return nil
	},
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Alias for session create",
	RunE:  sessionCreateCmd.RunE,
}

var sessionRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a session and stream its logs until it finishes",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, logger, err := specEngine()
		if err != nil {
			return err
		}
		mgr, err := sessionManager(cfg, logger)
		if err != nil {
			return err
		}
		sess, err := startSession(cmd.Context())
		if err != nil {
			return err
		}
		ch, unsubscribe, err := mgr.Subscribe(sess.ID)
		if err != nil {
			return err
		}
		defer unsubscribe()
		for log := range ch {
			fmt.Printf("[%s] %s\n", log.Level, log.Message)
		}
		final, err := mgr.Get(cmd.Context(), sess.ID)
		if err != nil {
			return err
		}
		fmt.Printf("session %s finished: %s\n", final.ID, final.Status)
		return nil
	},
}

var sessionPauseCmd = &cobra.Command{
	Use:  "pause <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error { return sessionTransition(cmd, args[0], (*session.Manager).Pause) },
}

var sessionResumeCmd = &cobra.Command{
	Use:  "resume <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error { return sessionTransition(cmd, args[0], (*session.Manager).Resume) },
}

var sessionStopCmd = &cobra.Command{
	Use:  "stop <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error { return sessionTransition(cmd, args[0], (*session.Manager).Stop) },
}

func sessionTransition(cmd *cobra.Command, id string, fn func(*session.Manager, context.Context, string) error) error {
	_, cfg, logger, err := specEngine()
	if err != nil {
		return err
	}
	mgr, err := sessionManager(cfg, logger)
	if err != nil {
		return err
	}
	if err := fn(mgr, cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("session %s updated\n", id)
	return nil
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supervised sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, logger, err := specEngine()
		if err != nil {
			return err
		}
		mgr, err := sessionManager(cfg, logger)
		if err != nil {
			return err
		}
		sessions, err := mgr.List(cmd.Context(), session.ListFilter{})
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Printf("%-36s %-10s %-10s %s\n", s.ID, s.Tool, s.Status, s.SpecID)
		}
		return nil
	},
}

var sessionViewCmd = &cobra.Command{
	Use:  "view <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, logger, err := specEngine()
		if err != nil {
			return err
		}
		mgr, err := sessionManager(cfg, logger)
		if err != nil {
			return err
		}
		sess, err := mgr.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(sess, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var sessionLogsCmd = &cobra.Command{
	Use:  "logs <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, logger, err := specEngine()
		if err != nil {
			return err
		}
		mgr, err := sessionManager(cfg, logger)
		if err != nil {
			return err
		}
		logs, err := mgr.Logs(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, l := range logs {
			fmt.Printf("%s [%s] %s\n", l.Timestamp.Format(time.RFC3339), l.Level, l.Message)
		}
		return nil
	},
}

var sessionArchiveCmd = &cobra.Command{
	Use:  "archive <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, logger, err := specEngine()
		if err != nil {
			return err
		}
		mgr, err := sessionManager(cfg, logger)
		if err != nil {
			return err
		}
		if err := mgr.Archive(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("session %s archived\n", args[0])
		return nil
	},
}

var sessRotateKeep int

var sessionRotateLogsCmd = &cobra.Command{
	Use:   "rotate-logs [id]",
	Short: "Delete all but the most recent --keep log rows for terminal sessions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, logger, err := specEngine()
		if err != nil {
			return err
		}
		mgr, err := sessionManager(cfg, logger)
		if err != nil {
			return err
		}

		var targets []*session.Session
		if len(args) == 1 {
			sess, err := mgr.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			targets = []*session.Session{sess}
		} else {
			targets, err = mgr.List(cmd.Context(), session.ListFilter{})
			if err != nil {
				return err
			}
		}

		var total int64
		for _, s := range targets {
			if !s.Status.IsTerminal() {
				continue
			}
			n, err := mgr.RotateLogs(cmd.Context(), s.ID, sessRotateKeep)
			if err != nil {
				return fmt.Errorf("rotate logs for session %s: %w", s.ID, err)
			}
			total += n
		}
		fmt.Printf("rotated %d log row(s), keeping up to %d per session\n", total, sessRotateKeep)
		return nil
	},
}

func init() {
	sessionRotateLogsCmd.Flags().IntVar(&sessRotateKeep, "keep", 200, "log rows to keep per session")
}

var sessionDeleteCmd = &cobra.Command{
	Use:  "delete <id>",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, logger, err := specEngine()
		if err != nil {
			return err
		}
		mgr, err := sessionManager(cfg, logger)
		if err != nil {
			return err
		}
		if err := mgr.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("session %s deleted\n", args[0])
		return nil
	},
}

func init() {
	addSessionStartFlags(sessionCreateCmd)
	addSessionStartFlags(sessionStartCmd)
	addSessionStartFlags(sessionRunCmd)
}
