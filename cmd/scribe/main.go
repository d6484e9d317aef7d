package main

import (
	"context"
	"fmt"
	"os"

	"scribe/internal/control"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "scribe",
		Short: "Scribe: long-form audio transcription with speaker labels",
		Long: `Scribe splits long recordings into segments, sends each one to the ElevenLabs
speech-to-text API and appends speaker-labelled, timestamped text to a transcript
file as segments complete. Inputs can be audio files, video files or YouTube URLs.

Key commands:
  transcribe <file|url>     Transcribe into transcripts/transcript_YYYYMMDD_HHMMSS.txt
  doctor                    Check ffmpeg, ffprobe, yt-dlp, API key and paths
  config show|init          Inspect or create the config file
  history [run-id]          Past runs and per-segment outcomes
  tail-log|test-hook        Log tail, manual hook run

Env: ELEVENLABS_API_KEY (or .env), SCRIBE_BASE_URL, SCRIBE_OUTPUT_DIR,
     SCRIBE_LOG_LEVEL/FORMAT, SCRIBE_LEDGER_ENABLED, SCRIBE_KEEP_SEGMENTS`,
		Example: `  scribe transcribe interview.mp3
  scribe transcribe lecture.mp4 --format json --mode merge
  scribe transcribe "https://youtu.be/dQw4w9WgXcQ" -l eng --num-speakers 2
  scribe transcribe call.wav --diarize=false --show-timestamp=false -o call.txt
  scribe history`,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		SilenceErrors:         true,
	}

	root.Version = version
	root.SetVersionTemplate("Scribe v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML or YAML). Defaults to ~/.config/scribe/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(control.NewTranscribeCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewConfigCmd(cfgPath))
	root.AddCommand(control.NewHistoryCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))
	root.AddCommand(control.NewTestHookCmd(cfgPath))

	applyColorHelp(root)

	return root.ExecuteContext(context.Background())
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			defaultHelp(cmd, args)
			return
		}
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sScribe%s long-form transcription %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sSegments long audio, recognizes each segment remotely, appends results as they arrive.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  scribe [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  transcribe <file|url>       audio, video or YouTube URL to transcript")
		writeln("  doctor                      check ffmpeg/ffprobe/yt-dlp/api key/paths")
		writeln("  config show|init            effective config (key masked) / write defaults")
		writeln("  history [run-id]            recent runs, or segments of one run")
		writeln("  tail-log                    show last log lines")
		writeln("  test-hook <transcript>      run the post-run hook manually")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  -f, --format text|json      output format (default text)")
		writeln("  --mode stream|merge         append per segment, or once at the end")
		writeln("  --segment-minutes <n>       segment length (default 45)")
		writeln("  --retries <n>               retry a failed segment with backoff")
		writeln("  -c, --config <path>         config file (default ~/.config/scribe/config.toml)")
		writeln("  Env: ELEVENLABS_API_KEY (or .env), SCRIBE_BASE_URL,")
		writeln("       SCRIBE_OUTPUT_DIR, SCRIBE_LOG_LEVEL=debug, SCRIBE_LOG_FORMAT=json,")
		writeln("       SCRIBE_LEDGER_ENABLED=0, SCRIBE_KEEP_SEGMENTS=0")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  scribe transcribe interview.mp3")
		writeln("  scribe transcribe lecture.mp4 --format json --mode merge")
		writeln("  scribe transcribe \"https://youtu.be/dQw4w9WgXcQ\" -l eng --num-speakers 2")
		writeln("  scribe transcribe call.wav --diarize=false -o call.txt")
		writeln("  scribe history")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
