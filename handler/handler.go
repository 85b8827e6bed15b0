package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"lineops/internal/domain"
	"lineops/internal/usecase"
)

// Dispatcher runs one daily dispatch.
type Dispatcher interface {
	Run(ctx context.Context, in usecase.DispatchInput) (usecase.DispatchOutput, error)
}

// Handler adapts a scheduled EventBridge event into a dispatch run.
type Handler struct {
	dispatcher Dispatcher
	base       usecase.DispatchInput
	logger     *slog.Logger
}

// overrides is the optional event detail. Unset fields keep the configured
// values.
type overrides struct {
	Mode    *string `json:"mode"`
	Text    *string `json:"text"`
	Message *string `json:"message"`
	DryRun  *bool   `json:"dryRun"`
}

// Response summarizes the run for the invocation result.
type Response struct {
	RunID      string   `json:"runId"`
	Mode       string   `json:"mode"`
	Skipped    bool     `json:"skipped"`
	Reasons    []string `json:"reasons,omitempty"`
	Recipients int      `json:"recipients"`
	Batches    int      `json:"batches"`
	DryRun     bool     `json:"dryRun"`
}

func NewHandler(dispatcher Dispatcher, base usecase.DispatchInput, logger *slog.Logger) (*Handler, error) {
	if dispatcher == nil {
		return nil, errors.New("handler: dispatcher must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{dispatcher: dispatcher, base: base, logger: logger}, nil
}

// Handle runs one dispatch. A failed dispatch is returned as an error so the
// invocation is marked failed.
func (h *Handler) Handle(ctx context.Context, event events.CloudWatchEvent) (Response, error) {
	logger := h.logger.With("event_id", event.ID)

	in := h.base
	if len(event.Detail) > 0 && string(event.Detail) != "null" {
		var o overrides
		if err := json.Unmarshal(event.Detail, &o); err != nil {
			uerr := usecase.NewError(usecase.ErrorInvalidInput, "invalid_event_detail", err)
			logger.ErrorContext(ctx, "invalid event detail", "outcome", "ERROR", "code", uerr.Code, "err", err)
			return Response{}, fmt.Errorf("%s: %w", uerr.Code, uerr)
		}
		o.apply(&in)
	}

	out, err := h.dispatcher.Run(ctx, in)
	if err != nil {
		code := usecase.CodeOf(err)
		if code == "" {
			code = usecase.ErrorInternal
		}
		attrs := []any{"outcome", "ERROR", "code", code, "err", err}
		if status, ok := usecase.UpstreamStatusCode(err); ok {
			attrs = append(attrs, "status", status, "body", usecase.UpstreamBody(err))
		}
		logger.ErrorContext(ctx, "dispatch failed", attrs...)
		return Response{}, fmt.Errorf("%s: %w", code, err)
	}

	outcome := "OK"
	if out.Skipped {
		outcome = "SKIP"
	}
	logger.InfoContext(ctx, "dispatch finished", "outcome", outcome, "run_id", out.RunID,
		"mode", out.Mode, "recipients", out.Recipients, "batches", out.Batches, "dry_run", out.DryRun)

	return Response{
		RunID:      out.RunID,
		Mode:       string(out.Mode),
		Skipped:    out.Skipped,
		Reasons:    out.Reasons,
		Recipients: out.Recipients,
		Batches:    out.Batches,
		DryRun:     out.DryRun,
	}, nil
}

func (o overrides) apply(in *usecase.DispatchInput) {
	if o.Mode != nil {
		in.Mode = domain.SendMode(*o.Mode)
	}
	if o.Text != nil {
		in.Text = *o.Text
	}
	if o.Message != nil {
		in.Message = *o.Message
	}
	if o.DryRun != nil {
		in.DryRun = *o.DryRun
	}
}
