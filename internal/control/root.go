package control

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"scribe/internal/config"
	"scribe/internal/doctor"
	"scribe/internal/hook"
	"scribe/internal/ledger"
	"scribe/internal/logging"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, credentials and paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cmd.Context(), cfg)
			out := cmd.OutOrStdout()
			for _, r := range results {
				status := "ok"
				switch {
				case !r.Pass && r.Optional:
					status = "warn"
				case !r.Pass:
					status = "fail"
				}
				fmt.Fprintf(out, "%-12s %-4s %s\n", r.Name, status, r.Detail)
			}
			if doctor.Failed(results) {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}

// NewConfigCmd groups config inspection helpers.
func NewConfigCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config (env and .env applied, key masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			shown := *cfg
			shown.Recognizer.APIKey = doctor.Mask(cfg.Recognizer.APIKey)
			data, err := toml.Marshal(&shown)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", cfg.Paths.ConfigPath, data)
			return nil
		},
	})
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *cfgPath
			if path == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				path = filepath.Join(home, ".config", "scribe", "config.toml")
			}
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg, err := config.Default()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

// NewHistoryCmd lists recent runs from the ledger.
func NewHistoryCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent transcription runs, or the chunks of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if !cfg.Ledger.Enabled {
				return fmt.Errorf("run history is disabled (ledger.enabled=false)")
			}
			store, err := ledger.Open(cmd.Context(), true, cfg.Ledger.Path, logging.Discard())
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			if len(args) == 1 {
				return printChunks(cmd, w, store, args[0])
			}
			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tCHUNKS\tMODE\tINPUT\tOUTPUT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					r.ID[:8], r.StartedAt.Local().Format(time.DateTime), r.Status, r.Chunks, r.Mode, r.Input, r.Output)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "number of runs to show")
	return cmd
}

func printChunks(cmd *cobra.Command, w *tabwriter.Writer, store *ledger.Store, id string) error {
	runs, err := store.ListRuns(cmd.Context(), 1000)
	if err != nil {
		return err
	}
	full := ""
	for _, r := range runs {
		if strings.HasPrefix(r.ID, id) {
			full = r.ID
			break
		}
	}
	if full == "" {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("no run matching %q", id)
		}
		full = id
	}
	chunks, err := store.ListChunks(cmd.Context(), full)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "#\tOFFSET\tDURATION\tWORDS\tSTATUS\tERROR")
	for _, c := range chunks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", c.Index, c.Offset, c.Duration.Round(time.Second), c.Words, c.Status, c.Error)
	}
	return nil
}

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail-log",
		Short: "Show the last log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")
			return tailFile(cmd, cfg.Paths.LogPath, n)
		},
	}
	cmd.Flags().IntP("lines", "n", 50, "number of lines")
	return cmd
}

func tailFile(cmd *cobra.Command, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	n = max(n, 1)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			fmt.Fprintln(cmd.OutOrStdout(), l)
		}
	}
	return nil
}

// NewTestHookCmd runs the post-run hook against an existing transcript.
func NewTestHookCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test-hook <transcript>",
		Short: "Run the configured hook on a transcript file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg, false)
			if err != nil {
				return err
			}
			r := hook.NewRunner(cfg, logger)
			if !r.Enabled() {
				return fmt.Errorf("no hook configured; set [hook] command in %s", cfg.Paths.ConfigPath)
			}
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}
			job := hook.Job{RunID: "test", Output: args[0], Source: filepath.Base(args[0])}
			return r.Run(cmd.Context(), job)
		},
	}
}
