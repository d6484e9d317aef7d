package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"scribe/internal/config"
	"scribe/internal/hook"
	"scribe/internal/ledger"
	"scribe/internal/logging"
	"scribe/internal/media"
	"scribe/internal/output"
	"scribe/internal/recognize"
	"scribe/internal/segment"
	"scribe/internal/transcript"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Resolver turns user input into a local audio file.
type Resolver interface {
	Resolve(ctx context.Context, input, dir string) (media.Audio, error)
}

// Splitter cuts audio into segments and removes them afterwards.
type Splitter interface {
	Split(ctx context.Context, src string, length time.Duration, dir string) ([]segment.Segment, error)
	Cleanup(segs []segment.Segment, dir string) error
}

// Notifier runs after a transcript is complete.
type Notifier interface {
	Enabled() bool
	Run(ctx context.Context, job hook.Job) error
}

// Stats counts progress through a run.
type Stats struct {
	Chunks    int
	Completed int
	Words     int
	// Units is the number of utterances (diarized) or sentences written.
	Units int
}

// Report is the outcome of a successful run.
type Report struct {
	RunID  string
	Output string
	Stats  Stats
}

// Pipeline drives one transcription from input to finished output file.
type Pipeline struct {
	Resolver   Resolver
	Splitter   Splitter
	Recognizer recognize.Recognizer
	// Ledger and Hook are optional.
	Ledger *ledger.Store
	Hook   Notifier
	Logger *logrus.Logger
	// Echo receives every appended block; nil disables echoing.
	Echo    io.Writer
	WorkDir string
	Now     func() time.Time
	// NewBackOff builds the retry schedule; nil means exponential.
	NewBackOff func() backoff.BackOff
}

type run struct {
	id    string
	opts  config.Options
	sink  *output.Sink
	form  output.Formatter
	stats Stats
	log   *logrus.Entry
}

// Run transcribes input according to opts. On failure the output file keeps
// everything appended before the failing chunk, and the returned Report still
// carries the run ID.
func (p *Pipeline) Run(ctx context.Context, input string, opts config.Options) (Report, error) {
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	started := now()

	r := &run{id: uuid.NewString(), opts: opts, form: output.New(opts)}
	r.log = logging.ForRun(p.Logger, r.id, input)

	outPath := opts.OutputFile
	if outPath == "" {
		outPath = output.TimestampName(opts.OutputDir, started)
	}
	r.sink = &output.Sink{Path: outPath, Echo: p.Echo, Logger: p.Logger}

	if err := p.Ledger.StartRun(ctx, ledger.Run{ID: r.id, Input: input, Output: outPath, Mode: opts.Mode}); err != nil {
		r.log.Warnf("ledger: start run: %v", err)
	}
	report, err := p.run(ctx, r, input, started)
	// The run context may already be cancelled; record the outcome regardless.
	if lerr := p.Ledger.FinishRun(context.WithoutCancel(ctx), r.id, err); lerr != nil {
		r.log.Warnf("ledger: finish run: %v", lerr)
	}
	if err != nil {
		r.log.Errorf("run failed after %d/%d chunk(s): %v", r.stats.Completed, r.stats.Chunks, err)
		return Report{RunID: r.id}, err
	}
	r.log.Infof("done in %s: %d chunk(s), %d word(s), %d unit(s) -> %s",
		now().Sub(started).Round(time.Millisecond), report.Stats.Chunks, report.Stats.Words, report.Stats.Units, report.Output)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, r *run, input string, started time.Time) (Report, error) {
	dir := filepath.Join(p.WorkDir, r.id)

	audio, err := p.Resolver.Resolve(ctx, input, dir)
	if err != nil {
		return Report{}, err
	}
	var segs []segment.Segment
	defer func() { p.cleanup(r, audio, input, segs, dir) }()

	segs, err = p.Splitter.Split(ctx, audio.Path, r.opts.SegmentLength, dir)
	if err != nil {
		return Report{}, err
	}
	r.stats.Chunks = len(segs)
	if err := p.Ledger.SetChunks(ctx, r.id, len(segs)); err != nil {
		r.log.Warnf("ledger: set chunks: %v", err)
	}

	src := output.Source{Path: audio.Path, OriginalName: audio.OriginalName, Title: audio.Title, URL: audio.URL}
	if err := r.sink.Create(output.RenderHeader(src, r.opts, started)); err != nil {
		return Report{}, err
	}
	r.log.Infof("writing transcript to %s", r.sink.Path)

	req := recognize.Request{
		Diarize:        r.opts.Diarize,
		NumSpeakers:    r.opts.NumSpeakers,
		TagAudioEvents: r.opts.TagAudioEvents,
		Language:       r.opts.Language,
	}

	var collected []transcript.Result
	for _, seg := range segs {
		res, err := p.chunk(ctx, r, seg, req)
		if err != nil {
			if r.opts.Mode == config.ModeMerge && len(collected) > 0 {
				r.log.Warnf("writing %d completed chunk(s) before aborting", len(collected))
				if ferr := p.write(r, transcript.Merge(collected...)); ferr != nil {
					r.log.Warnf("write partial transcript: %v", ferr)
				}
			}
			return Report{}, err
		}
		if r.opts.Mode == config.ModeMerge {
			collected = append(collected, res)
			continue
		}
		if err := p.write(r, res); err != nil {
			return Report{}, err
		}
	}
	if r.opts.Mode == config.ModeMerge {
		if err := p.write(r, transcript.Merge(collected...)); err != nil {
			return Report{}, err
		}
	}

	if p.Hook != nil && p.Hook.Enabled() {
		job := hook.Job{RunID: r.id, Output: r.sink.Path, Source: src.DisplayName(), Chunks: len(segs)}
		if err := p.Hook.Run(ctx, job); err != nil {
			r.log.Warnf("post-run hook: %v", err)
		}
	}
	return Report{RunID: r.id, Output: r.sink.Path, Stats: r.stats}, nil
}

// chunk recognizes one segment and shifts its timestamps onto the source timeline.
func (p *Pipeline) chunk(ctx context.Context, r *run, seg segment.Segment, req recognize.Request) (transcript.Result, error) {
	r.log.Infof("chunk %d/%d: recognizing %s (offset %s)", seg.Index+1, r.stats.Chunks, filepath.Base(seg.Path), seg.Offset)
	rec := ledger.Chunk{RunID: r.id, Index: seg.Index, Path: seg.Path, Offset: seg.Offset, Duration: seg.Duration}

	res, err := p.recognize(ctx, r, seg, req)
	if err != nil {
		var re *recognize.RecognitionError
		if !errors.As(err, &re) {
			err = &recognize.RecognitionError{Chunk: seg.Path, Err: err}
		}
		rec.Status, rec.Error = ledger.StatusFailed, err.Error()
		p.recordChunk(ctx, r, rec)
		return transcript.Result{}, err
	}
	res = transcript.Shift(res, seg.Offset)

	r.stats.Completed++
	r.stats.Words += len(res.Words)
	rec.Status, rec.Words = ledger.StatusDone, len(res.Words)
	p.recordChunk(ctx, r, rec)
	r.log.Infof("chunk %d/%d: %d word(s)", seg.Index+1, r.stats.Chunks, len(res.Words))
	return res, nil
}

func (p *Pipeline) recognize(ctx context.Context, r *run, seg segment.Segment, req recognize.Request) (transcript.Result, error) {
	if r.opts.Retries <= 0 {
		return p.Recognizer.Recognize(ctx, seg.Path, req)
	}
	op := func() (transcript.Result, error) {
		res, err := p.Recognizer.Recognize(ctx, seg.Path, req)
		if err != nil && ctx.Err() != nil {
			return res, backoff.Permanent(err)
		}
		return res, err
	}
	var bo backoff.BackOff
	if p.NewBackOff != nil {
		bo = p.NewBackOff()
	} else {
		bo = backoff.NewExponentialBackOff()
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(r.opts.Retries+1)),
		backoff.WithMaxElapsedTime(24*time.Hour),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.log.Warnf("chunk %d: %v; retrying in %s", seg.Index+1, err, next.Round(time.Millisecond))
		}),
	)
}

// write groups and formats res, then appends it to the sink.
func (p *Pipeline) write(r *run, res transcript.Result) error {
	body, err := r.form.Format(res)
	if err != nil {
		return fmt.Errorf("format transcript: %w", err)
	}
	if err := r.sink.Append(body); err != nil {
		return err
	}
	if r.opts.Diarize {
		r.stats.Units += len(transcript.GroupBySpeaker(res.Words))
	} else {
		r.stats.Units += len(transcript.SplitSentences(res.Words))
	}
	return nil
}

func (p *Pipeline) recordChunk(ctx context.Context, r *run, c ledger.Chunk) {
	if err := p.Ledger.RecordChunk(context.WithoutCancel(ctx), c); err != nil {
		r.log.Warnf("ledger: record chunk %d: %v", c.Index, err)
	}
}

// cleanup removes extracted segments and intermediate media unless the
// operator asked to keep them.
func (p *Pipeline) cleanup(r *run, audio media.Audio, input string, segs []segment.Segment, dir string) {
	if r.opts.KeepSegments {
		r.log.Debugf("keeping intermediate files in %s", dir)
		return
	}
	if err := p.Splitter.Cleanup(segs, dir); err != nil {
		r.log.Warnf("remove segments: %v", err)
	}
	if audio.Path != input && filepath.Dir(audio.Path) == dir {
		if err := os.Remove(audio.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warnf("remove %s: %v", audio.Path, err)
		}
		_ = os.Remove(dir)
	}
}
