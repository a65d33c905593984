// internal/workers/analysis/triage-dispatch/handler.go
package triagedispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"vigil-workers/internal/capability"
	"vigil-workers/internal/common/metrics"
	"vigil-workers/internal/models"
)

var ErrTaskTimeout = errors.New("TASK_TIMEOUT")

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

type Handler struct {
	config    *Config
	generator capability.Generator
	logger    Logger
}

func NewHandler(config *Config, generator capability.Generator, log Logger) *Handler {
	return &Handler{
		config:    config,
		generator: generator,
		logger:    log,
	}
}

// Dispatch runs one analysis task per frame plus one for the transcript and
// returns their findings in frame order, transcript last. Task failures become
// findings with OK=false. An error is returned only when ctx is cancelled, in
// which case in-flight tasks are abandoned.
func (h *Handler) Dispatch(ctx context.Context, bundle *models.MediaBundle) ([]models.Finding, error) {
	tasks := h.buildTasks(bundle)
	findings := make([]models.Finding, len(tasks))

	var g errgroup.Group
	if h.config.MaxParallel > 0 {
		g.SetLimit(h.config.MaxParallel)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, t := range tasks {
			if ctx.Err() != nil {
				break
			}
			i, t := i, t
			g.Go(func() error {
				findings[i] = h.runTask(ctx, t)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		h.logger.Warn("triage abandoned", map[string]interface{}{"tasks": len(tasks)})
		return nil, ctx.Err()
	}

	failed := 0
	for _, f := range findings {
		if !f.OK {
			failed++
		}
	}
	h.logger.Info("triage complete", map[string]interface{}{
		"findings": len(findings),
		"failed":   failed,
	})
	return findings, nil
}

func (h *Handler) buildTasks(bundle *models.MediaBundle) []task {
	header := describeMedia(bundle.Info)
	total := len(bundle.Frames)

	tasks := make([]task, 0, total+1)
	for i, frame := range bundle.Frames {
		t := task{
			tag:   FrameTag(i),
			kind:  "frame",
			role:  VisualAnalystRole,
			instr: visualInstructions,
		}
		desc := fmt.Sprintf("%sFrame %d of %d (source frame %d).", header, i+1, total, frame.Index)
		if frame.Synthetic {
			t.text = desc + "\nNo image is available for this frame: " + frame.Note +
				". Report that the frame could not be analysed."
		} else {
			t.text = desc
			t.images = []string{frame.Location}
		}
		tasks = append(tasks, t)
	}

	transcript := strings.TrimSpace(bundle.Transcript)
	if transcript == "" {
		transcript = "(no speech was transcribed)"
	}
	tasks = append(tasks, task{
		tag:   TranscriptTag,
		kind:  TranscriptTag,
		role:  TextAnalystRole,
		instr: textInstructions,
		text:  header + "Transcript:\n" + transcript,
	})
	return tasks
}

func describeMedia(info models.MediaInfo) string {
	var b strings.Builder
	if info.Title != "" {
		fmt.Fprintf(&b, "Video title: %s\n", info.Title)
	}
	if info.Uploader != "" {
		fmt.Fprintf(&b, "Uploader: %s\n", info.Uploader)
	}
	return b.String()
}

type generation struct {
	out string
	err error
}

// runTask bounds a single generation by TaskTimeout even when the generator
// ignores its context. A panicking generator yields a failed finding.
func (h *Handler) runTask(ctx context.Context, t task) models.Finding {
	tctx, cancel := context.WithTimeout(ctx, h.config.TaskTimeout)
	defer cancel()

	ch := make(chan generation, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- generation{err: fmt.Errorf("panic: %v", p)}
			}
		}()
		out, err := h.generator.Generate(tctx, capability.GenerationRequest{
			Role:         t.role,
			Instructions: t.instr,
			Evidence:     t.text,
			Images:       t.images,
		})
		ch <- generation{out: out, err: err}
	}()

	var finding models.Finding
	select {
	case r := <-ch:
		finding = h.toFinding(ctx, tctx, t, r)
	case <-tctx.Done():
		if ctx.Err() != nil {
			return models.Finding{SourceTag: t.tag, Content: "analysis failed: " + ctx.Err().Error()}
		}
		finding = h.timeoutFinding(t)
	}

	metrics.TriageFindings.WithLabelValues(t.kind, strconv.FormatBool(finding.OK)).Inc()
	return finding
}

func (h *Handler) toFinding(ctx, tctx context.Context, t task, r generation) models.Finding {
	switch {
	case r.err == nil && strings.TrimSpace(r.out) != "":
		return models.Finding{SourceTag: t.tag, Content: strings.TrimSpace(r.out), OK: true}
	case r.err == nil:
		return h.failedFinding(t, errors.New("empty response"))
	case ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded):
		return h.timeoutFinding(t)
	default:
		return h.failedFinding(t, r.err)
	}
}

func (h *Handler) timeoutFinding(t task) models.Finding {
	h.logger.Warn("triage task timed out", map[string]interface{}{
		"task":    t.tag,
		"timeout": h.config.TaskTimeout.String(),
	})
	return models.Finding{
		SourceTag: t.tag,
		Content:   fmt.Sprintf("task timeout: %v after %s", ErrTaskTimeout, h.config.TaskTimeout),
		OK:        false,
	}
}

func (h *Handler) failedFinding(t task, err error) models.Finding {
	h.logger.Warn("triage task failed", map[string]interface{}{
		"task":  t.tag,
		"error": err.Error(),
	})
	return models.Finding{
		SourceTag: t.tag,
		Content:   "analysis failed: " + err.Error(),
		OK:        false,
	}
}
