// Package pipeline runs one upload through validation, persistence,
// conversion and registration for download.
//
// A request moves strictly forward through
//
//	Received -> Validated -> Persisted -> Converted -> Delivered
//
// and may end in Rejected from Received (validation) or from Validated and
// Persisted (storage, conversion). A Rejected request leaves no files behind.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"pdfconvert/internal/converter"
	"pdfconvert/internal/types"
	"pdfconvert/internal/validator"
	"pdfconvert/internal/workspace"
)

type State string

const (
	StateReceived  State = "received"
	StateValidated State = "validated"
	StatePersisted State = "persisted"
	StateConverted State = "converted"
	StateDelivered State = "delivered"
	StateRejected  State = "rejected"
)

// Result is the terminal state of a request: Delivered with a download
// token, or Rejected with a reason.
type Result struct {
	State State

	// Delivered
	Token       string
	DisplayName string

	// Rejected
	RejectedAt State
	Reason     types.Reason
	Err        error // internal detail, not for clients
}

func (r Result) Delivered() bool {
	return r.State == StateDelivered
}

type Orchestrator struct {
	validator  *validator.Validator
	workspace  *workspace.Manager
	converters map[types.Mode]converter.Converter
	log        *slog.Logger
}

func New(v *validator.Validator, ws *workspace.Manager, converters ...converter.Converter) *Orchestrator {
	byMode := make(map[types.Mode]converter.Converter, len(converters))
	for _, c := range converters {
		byMode[c.Mode()] = c
	}

	return &Orchestrator{
		validator:  v,
		workspace:  ws,
		converters: byMode,
		log:        slog.Default().With("component", "pipeline"),
	}
}

// Run processes req to completion. Conversion is not interrupted when ctx
// is cancelled, only values are inherited from it.
func (o *Orchestrator) Run(ctx context.Context, req types.UploadRequest) Result {
	log := o.log.With("file", req.FileName, "mode", req.Mode, "size", len(req.Data))

	conv, ok := o.converters[req.Mode]
	if !ok {
		return o.reject(log, StateReceived, types.Errorf(types.ReasonBadRequest, "unsupported mode %q", req.Mode))
	}

	// Received -> Validated
	if res := o.validator.Validate(req.FileName, req.DeclaredSize, req.Data); !res.Accepted() {
		return o.reject(log, StateReceived, res.Err())
	}

	// Validated -> Persisted
	h := o.workspace.Allocate(req.FileName, conv.Extension())
	log = log.With("token", h.Token)

	if err := o.workspace.WriteInput(h, req.Data); err != nil {
		o.workspace.Release(h, false)
		return o.reject(log, StateValidated, types.NewError(types.ReasonStorage, err))
	}

	// Persisted -> Converted
	outcome := converter.Run(context.WithoutCancel(ctx), conv, h.InputPath, h.OutputPath, h.DisplayName)
	if !outcome.Succeeded() {
		o.workspace.Release(h, false)
		return o.reject(log, StatePersisted, outcome.Err)
	}

	if err := o.workspace.Commit(h); err != nil {
		o.workspace.Release(h, false)
		return o.reject(log, StatePersisted, types.NewError(types.ReasonConversion, err))
	}

	// Converted -> Delivered
	o.workspace.Release(h, true)
	log.Info("Conversion delivered", "display_name", outcome.DisplayName)

	return Result{
		State:       StateDelivered,
		Token:       h.Token,
		DisplayName: outcome.DisplayName,
	}
}

// ContentType returns the media type for a download token
func (o *Orchestrator) ContentType(token string) string {
	for _, c := range o.converters {
		if strings.HasSuffix(token, c.Extension()) {
			return c.ContentType()
		}
	}

	return "application/octet-stream"
}

func (o *Orchestrator) reject(log *slog.Logger, at State, err error) Result {
	reason := types.ReasonOf(err)
	log.Error("Request rejected", "at", at, "reason", reason, "error", err)

	return Result{
		State:      StateRejected,
		RejectedAt: at,
		Reason:     reason,
		Err:        err,
	}
}
