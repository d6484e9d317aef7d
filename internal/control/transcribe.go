package control

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scribe/internal/config"
	"scribe/internal/hook"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/media"
	"scribe/internal/pipeline"
	"scribe/internal/recognize"
	"scribe/internal/segment"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewTranscribeCmd transcribes a local audio/video file or a YouTube URL.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <file|url>",
		Short: "Transcribe long audio, video or a YouTube URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			opts := cfg.Options()
			if err := applyFlags(cmd, &opts); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			key, err := cfg.RequireAPIKey()
			if err != nil {
				return err
			}
			debug, _ := cmd.Flags().GetBool("debug")
			logger, err := logging.Configure(cfg, debug)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := ledger.Open(ctx, cfg.Ledger.Enabled, cfg.Ledger.Path, logger)
			if err != nil {
				logger.Warnf("run history disabled: %v", err)
				store, _ = ledger.Open(ctx, false, "", logger)
			}
			defer store.Close()

			var echo io.Writer = cmd.OutOrStdout()
			if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
				echo = nil
			}
			p := newPipeline(cfg, key, logger, store, echo)
			rep, err := p.Run(ctx, args[0], opts)
			if err != nil {
				if debug {
					logErrorChain(logger, err)
				}
				if store.Enabled() && rep.RunID != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "chunk status: scribe history %s\n", rep.RunID[:8])
				}
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "transcript written to %s (%d chunk(s), %d word(s))\n",
				rep.Output, rep.Stats.Chunks, rep.Stats.Words)
			if store.Enabled() {
				fmt.Fprintf(cmd.ErrOrStderr(), "run %s recorded in history\n", rep.RunID[:8])
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Bool("tag-audio-events", true, "tag non-speech events such as (laughter)")
	f.StringP("format", "f", config.FormatText, "output format: text or json")
	f.StringP("output", "o", "", "output file (default <output-dir>/transcript_YYYYMMDD_HHMMSS.txt)")
	f.String("output-dir", config.DefaultOutputDir, "directory for generated transcripts")
	f.Int("num-speakers", 0, "expected speaker count (0 lets the recognizer decide)")
	f.Bool("diarize", true, "label words with speakers")
	f.Bool("show-timestamp", true, "prefix lines with [HH:MM:SS]")
	f.StringP("language", "l", "", "ISO language code, e.g. jpn or eng (default auto-detect)")
	f.Int("segment-minutes", config.DefaultSegmentMin, "maximum segment length in minutes")
	f.String("mode", config.ModeStream, "stream writes each segment as it finishes; merge writes once at the end")
	f.Bool("keep-segments", true, "keep extracted segment files after the run")
	f.Int("retries", 0, "extra attempts per segment on recognition failure")
	f.Bool("debug", false, "verbose logging and error chain on failure")
	f.BoolP("quiet", "q", false, "do not echo the transcript to stdout")
	return cmd
}

// applyFlags overrides config values with flags the user actually set.
func applyFlags(cmd *cobra.Command, o *config.Options) error {
	f := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && f.Changed(name) {
			err = apply()
		}
	}
	set("tag-audio-events", func() (e error) { o.TagAudioEvents, e = f.GetBool("tag-audio-events"); return })
	set("format", func() (e error) { o.Format, e = f.GetString("format"); return })
	set("output", func() (e error) { o.OutputFile, e = f.GetString("output"); return })
	set("output-dir", func() (e error) { o.OutputDir, e = f.GetString("output-dir"); return })
	set("num-speakers", func() (e error) { o.NumSpeakers, e = f.GetInt("num-speakers"); return })
	set("diarize", func() (e error) { o.Diarize, e = f.GetBool("diarize"); return })
	set("show-timestamp", func() (e error) { o.ShowTimestamp, e = f.GetBool("show-timestamp"); return })
	set("language", func() (e error) { o.Language, e = f.GetString("language"); return })
	set("segment-minutes", func() error {
		m, e := f.GetInt("segment-minutes")
		o.SegmentLength = time.Duration(m) * time.Minute
		return e
	})
	set("mode", func() (e error) { o.Mode, e = f.GetString("mode"); return })
	set("keep-segments", func() (e error) { o.KeepSegments, e = f.GetBool("keep-segments"); return })
	set("retries", func() (e error) { o.Retries, e = f.GetInt("retries"); return })
	return err
}

func newPipeline(cfg *config.Config, key string, logger *logrus.Logger, store *ledger.Store, echo io.Writer) *pipeline.Pipeline {
	m := cfg.Media
	return &pipeline.Pipeline{
		Resolver: &media.Resolver{
			Downloader: media.YTDLP{Bin: m.YTDLP, Args: m.YTDLPArgs},
			Converter:  media.FFmpeg{Bin: m.FFmpeg},
			Logger:     logger,
		},
		Splitter: &segment.Segmenter{
			Prober:    segment.ChainProber{segment.WAVProber{}, segment.FFProbe{Bin: m.FFprobe}},
			Extractor: segment.FFmpeg{Bin: m.FFmpeg, Args: m.FFmpegArgs},
			Logger:    logger,
		},
		Recognizer: recognize.NewElevenLabs(key, cfg.Recognizer.BaseURL, cfg.Recognizer.Model, cfg.RecognizerTimeout()),
		Ledger:     store,
		Hook:       hook.NewRunner(cfg, logger),
		Logger:     logger,
		Echo:       echo,
		WorkDir:    m.WorkDir,
	}
}

// logErrorChain logs every wrapped error with its concrete type.
func logErrorChain(logger *logrus.Logger, err error) {
	for depth := 0; err != nil; depth++ {
		logger.WithFields(logrus.Fields{"depth": depth, "type": fmt.Sprintf("%T", err)}).Debug(err.Error())
		err = errors.Unwrap(err)
	}
}
