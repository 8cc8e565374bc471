package planting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/tree-request-service/internal/domain"
	"github.com/couchcryptid/tree-request-service/internal/observability"
)

// Stage is a step of the request state machine.
type Stage string

const (
	StageReceived         Stage = "received"
	StageValidated        Stage = "validated"
	StageDuplicateChecked Stage = "duplicate_checked"
	StageSubmitting       Stage = "submitting"
	StageSubmitted        Stage = "submitted"
	StageRejected         Stage = "rejected"
)

// Orchestrator handles plant requests end to end.
type Orchestrator struct {
	guard     *Guard
	store     Store
	submitter Submitter
	locker    Locker
	publisher Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates an Orchestrator. locker and publisher may be nil.
func New(store Store, submitter Submitter, locker Locker, publisher Publisher, metrics *observability.Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		guard:     NewGuard(store),
		store:     store,
		submitter: submitter,
		locker:    locker,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Handle runs req through the state machine. It never retries; every
// failure is reported in the returned outcome.
func (o *Orchestrator) Handle(ctx context.Context, req domain.PlantRequest) domain.SubmissionOutcome {
	out := o.handle(ctx, req)
	o.metrics.PlantRequests.WithLabelValues(string(out.Status)).Inc()

	attrs := []any{"outcome", out.Status, "address", out.Request.Address}
	switch out.Status {
	case domain.OutcomeSuccess:
		o.logger.Info("plant request completed", append(attrs, "sr_number", out.SRNumber)...)
	case domain.OutcomeAlreadyExists:
		o.logger.Info("plant request duplicate", append(attrs, "existing_id", out.ExistingID)...)
	case domain.OutcomeValidationFailure:
		o.logger.Info("plant request rejected", append(attrs, "kind", out.Kind, "message", out.Message)...)
	default:
		o.logger.Error("plant request failed", append(attrs, "message", out.Message, "error", out.Err)...)
	}
	return out
}

func (o *Orchestrator) handle(ctx context.Context, req domain.PlantRequest) domain.SubmissionOutcome {
	o.trace(StageReceived, req)

	req, err := canonicalize(req)
	if err == nil {
		err = domain.ValidateRequest(req)
	}
	if err != nil {
		return rejected(req, err)
	}
	o.trace(StageValidated, req)

	if o.locker != nil {
		unlock, err := o.locker.Lock(ctx, req.Address)
		if err != nil {
			return failed(req, "Could not reserve address for submission", err)
		}
		defer unlock()
	}

	dup, err := o.guard.Check(ctx, req.Address)
	if err != nil {
		return failed(req, "Failed to check existing records", err)
	}
	if dup.Exists {
		o.trace(StageRejected, req)
		return alreadyExists(req, dup.ExistingID)
	}
	o.trace(StageDuplicateChecked, req)

	receipt, err := o.submit(ctx, req)
	if err != nil {
		msg := "Failed to submit request to 311"
		var extErr *domain.ExternalSubmissionError
		if errors.As(err, &extErr) {
			msg = extErr.Message
		}
		if errors.Is(err, domain.ErrAddressNotFound) {
			msg = fmt.Sprintf("Invalid address: %s", req.Address)
		}
		return failed(req, msg, err)
	}
	o.trace(StageSubmitted, req)

	row := domain.NewTreeRequest(req, receipt.SRNumber)
	if err := o.store.Insert(ctx, &row); err != nil {
		if errors.Is(err, domain.ErrDuplicateAddress) {
			// 311 accepted the request but another submission won the insert.
			o.logger.Warn("address recorded concurrently", "address", req.Address, "sr_number", receipt.SRNumber)
			out := alreadyExists(req, 0)
			out.SRNumber = receipt.SRNumber
			return out
		}
		o.logger.Error("submitted request not persisted", "address", req.Address, "sr_number", receipt.SRNumber, "error", err)
		out := failed(req, fmt.Sprintf("Request %s was submitted but could not be saved", receipt.SRNumber), err)
		out.SRNumber = receipt.SRNumber
		return out
	}

	o.publish(ctx, row)

	return domain.SubmissionOutcome{
		Status:   domain.OutcomeSuccess,
		SRNumber: receipt.SRNumber,
		Message:  fmt.Sprintf("Successfully planted %d tree(s) at %s", row.NumTrees, row.StreetAddress),
		Request:  req,
	}
}

// submit opens an automation session for a single submission and always
// closes it before returning.
func (o *Orchestrator) submit(ctx context.Context, req domain.PlantRequest) (domain.Receipt, error) {
	o.trace(StageSubmitting, req)

	session, err := o.submitter.Open(ctx)
	if err != nil {
		return domain.Receipt{}, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			o.logger.Warn("close automation session failed", "error", err)
		}
	}()

	return session.Submit(ctx, domain.Submission{
		Address:      req.Address,
		NumTrees:     req.TreeCount(),
		LocationText: req.LocationText(),
	})
}

func (o *Orchestrator) publish(ctx context.Context, row domain.TreeRequest) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, row); err != nil {
		o.metrics.PublishErrors.Inc()
		o.logger.Warn("publish tree request failed", "sr_number", row.SRNumber, "error", err)
	}
}

func (o *Orchestrator) trace(stage Stage, req domain.PlantRequest) {
	o.logger.Debug("plant request stage", "stage", stage, "address", req.Address)
}

// canonicalize rewrites geocoder-formatted addresses into canonical form.
// Bare addresses are only trimmed and left to the validator.
func canonicalize(req domain.PlantRequest) (domain.PlantRequest, error) {
	if domain.IsGeocoded(req.Address) {
		canonical, err := domain.NormalizeAddress(req.Address)
		if err != nil {
			return req, err
		}
		req.Address = canonical
		return req, nil
	}
	req.Address = strings.TrimSpace(req.Address)
	return req, nil
}

func rejected(req domain.PlantRequest, err error) domain.SubmissionOutcome {
	out := domain.SubmissionOutcome{
		Status:  domain.OutcomeValidationFailure,
		Message: err.Error(),
		Request: req,
		Err:     err,
	}
	if verr, ok := domain.AsValidationError(err); ok {
		out.Kind = verr.Kind
		out.Message = verr.Message
	}
	return out
}

func alreadyExists(req domain.PlantRequest, existingID int64) domain.SubmissionOutcome {
	return domain.SubmissionOutcome{
		Status:     domain.OutcomeAlreadyExists,
		Message:    fmt.Sprintf("Address %s already exists in records", req.Address),
		Request:    req,
		ExistingID: existingID,
	}
}

func failed(req domain.PlantRequest, msg string, err error) domain.SubmissionOutcome {
	return domain.SubmissionOutcome{
		Status:  domain.OutcomeExternalFailure,
		Message: msg,
		Request: req,
		Err:     err,
	}
}
