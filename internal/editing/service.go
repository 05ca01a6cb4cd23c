package editing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/lehigh-university-libraries/batchedit/internal/imaging"
	"github.com/lehigh-university-libraries/batchedit/internal/models"
	"github.com/lehigh-university-libraries/batchedit/internal/preferences"
	"github.com/lehigh-university-libraries/batchedit/internal/providers"
	"github.com/lehigh-university-libraries/batchedit/internal/storage"
	"golang.org/x/sync/errgroup"
)

// User-visible session messages
const (
	MsgEditNeedsInput       = "Please select images and enter a prompt."
	MsgRemoveNeedsSelection = "Please select the images to remove the background from."
	MsgGenerateNeedsPrompt  = "Please enter a prompt to generate an image."
	MsgGenerateFailed       = "An error occurred while generating the image. Please try again."

	msgEditFailed   = "Failed to edit image %s."
	msgRemoveFailed = "Failed to remove background from image %s."
)

// DefaultGenerateAspectRatio is used when no ratio is given for generation
const DefaultGenerateAspectRatio = "1:1"

// ValidationError is returned when an operation is rejected before any
// remote call is made
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return models.ErrValidation
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type Service struct {
	editor providers.Editor
	prefs  *preferences.Manager
}

func NewService(editor providers.Editor, prefs *preferences.Manager) *Service {
	return &Service{
		editor: editor,
		prefs:  prefs,
	}
}

// StartEdit dispatches a prompt edit for every selected image, or for every
// loaded image when nothing is selected. The returned Batch settles once all
// items have finished; the selection is cleared afterwards.
func (s *Service) StartEdit(ctx context.Context, sess *storage.Session, prompt string) (*Batch, error) {
	prompt = strings.TrimSpace(prompt)

	targets := sess.Selection()
	if len(targets) == 0 {
		for _, img := range sess.Images() {
			targets = append(targets, img.ID)
		}
	}
	if len(targets) == 0 || prompt == "" {
		return nil, reject(sess, MsgEditNeedsInput)
	}

	// preferences are read once per dispatch
	opts := s.prefs.TransformOptions()

	slog.Info("Starting batch edit", "session_id", sess.ID, "images", len(targets), "aspect_ratio", opts.AspectRatio, "longest_edge", opts.LongestEdge, "format", opts.Format)

	return s.dispatch(ctx, sess, targets, true, msgEditFailed, func(ctx context.Context, img models.SourceImage) error {
		edited, err := s.editor.PromptEdit(ctx, img.Payload, prompt)
		if err != nil {
			return fmt.Errorf("failed to edit image: %w", err)
		}
		processed, err := imaging.Transform(edited, opts)
		if err != nil {
			return err
		}
		if !sess.PutResult(models.ProcessedResult{OriginalID: img.ID, Payload: processed}) {
			return errImageRemoved
		}
		return nil
	})
}

// StartRemoveBackground dispatches background removal for the selected
// images. The selection is mandatory and is left untouched afterwards.
func (s *Service) StartRemoveBackground(ctx context.Context, sess *storage.Session) (*Batch, error) {
	targets := sess.Selection()
	if len(targets) == 0 {
		return nil, reject(sess, MsgRemoveNeedsSelection)
	}

	slog.Info("Starting background removal", "session_id", sess.ID, "images", len(targets))

	return s.dispatch(ctx, sess, targets, false, msgRemoveFailed, func(ctx context.Context, img models.SourceImage) error {
		cutout, err := s.editor.RemoveBackground(ctx, img.Payload)
		if err != nil {
			return fmt.Errorf("failed to remove background: %w", err)
		}
		if !sess.PutResult(models.ProcessedResult{OriginalID: img.ID, Payload: cutout}) {
			return errImageRemoved
		}
		return nil
	})
}

// Edit runs StartEdit and waits for every item to settle
func (s *Service) Edit(ctx context.Context, sess *storage.Session, prompt string) (Report, error) {
	b, err := s.StartEdit(ctx, sess, prompt)
	if err != nil {
		return Report{}, err
	}
	return b.Wait(), nil
}

// RemoveBackground runs StartRemoveBackground and waits for every item to settle
func (s *Service) RemoveBackground(ctx context.Context, sess *storage.Session) (Report, error) {
	b, err := s.StartRemoveBackground(ctx, sess)
	if err != nil {
		return Report{}, err
	}
	return b.Wait(), nil
}

// Generate creates one image from prompt and prepends it to the session's
// generated list
func (s *Service) Generate(ctx context.Context, sess *storage.Session, prompt, aspectRatio string) (models.GeneratedResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return models.GeneratedResult{}, reject(sess, MsgGenerateNeedsPrompt)
	}
	if aspectRatio == "" {
		aspectRatio = DefaultGenerateAspectRatio
	}

	sess.SetError("")
	sess.BeginBatch()
	defer sess.EndBatch(false)

	payload, err := s.editor.GenerateFromText(ctx, prompt, aspectRatio)
	if err != nil {
		slog.Error("Failed to generate image", "session_id", sess.ID, "aspect_ratio", aspectRatio, "err", err)
		sess.SetError(MsgGenerateFailed)
		return models.GeneratedResult{}, fmt.Errorf("failed to generate image: %w", err)
	}

	result := models.GeneratedResult{Payload: payload, Prompt: prompt}
	sess.AddGenerated(result)
	return result, nil
}

func reject(sess *storage.Session, msg string) error {
	sess.SetError(msg)
	return &ValidationError{Message: msg}
}

type itemFunc func(ctx context.Context, img models.SourceImage) error

// errImageRemoved marks an item whose image left the session mid-flight
var errImageRemoved = errors.New("image removed during batch")

// runItem calls fn, converting a panic into an item error
func runItem(ctx context.Context, fn itemFunc, img models.SourceImage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Batch item panicked", "image_id", img.ID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic while processing image: %v", r)
		}
	}()
	return fn(ctx, img)
}

// dispatch fans out one goroutine per target. Items never cancel each other
// and run detached from the caller's cancellation.
func (s *Service) dispatch(ctx context.Context, sess *storage.Session, targets []string, clearSelection bool, failMsg string, fn itemFunc) (*Batch, error) {
	sess.SetError("")
	sess.BeginBatch()
	sess.SetProcessing(targets...)

	ctx = context.WithoutCancel(ctx)
	b := newBatch(targets)

	var g errgroup.Group
	for i, id := range targets {
		g.Go(func() error {
			defer sess.ClearProcessing(id)

			img, ok := sess.Image(id)
			if !ok {
				b.settle(i, outcome{skipped: true})
				return nil
			}

			err := runItem(ctx, fn, img)
			if errors.Is(err, errImageRemoved) {
				slog.Debug("Discarding result for removed image", "session_id", sess.ID, "image_id", id)
				b.settle(i, outcome{skipped: true})
				return nil
			}
			if err != nil {
				slog.Error("Batch item failed", "session_id", sess.ID, "image_id", id, "name", img.Name, "err", err)
				sess.SetError(fmt.Sprintf(failMsg, img.Name))
				b.settle(i, outcome{name: img.Name, err: err})
				return nil
			}

			slog.Debug("Batch item finished", "session_id", sess.ID, "image_id", id)
			b.settle(i, outcome{name: img.Name})
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		sess.EndBatch(clearSelection)
		b.finish()
		slog.Info("Batch settled", "session_id", sess.ID, "succeeded", len(b.report.Succeeded), "failed", len(b.report.Failures))
	}()

	return b, nil
}
