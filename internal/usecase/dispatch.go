package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"lineops/internal/domain"
)

const (
	multicastBatchSize = 500
	followersPageSize  = 1000
)

// MessagingAPI is the part of the LINE client used by the dispatcher.
type MessagingAPI interface {
	Broadcast(ctx context.Context, messages []domain.TextMessage) error
	Multicast(ctx context.Context, to []string, messages []domain.TextMessage) error
	MessageQuota(ctx context.Context) (domain.PlanKind, int64, error)
	MessageConsumption(ctx context.Context) (int64, error)
	FollowerIDs(ctx context.Context, start string, limit int) ([]string, string, error)
}

// DispatchLedger guards against sending twice on the same day. Claim returns
// domain.ErrAlreadyDispatched when the day is taken.
type DispatchLedger interface {
	Claim(ctx context.Context, rec domain.DispatchRecord) error
	Complete(ctx context.Context, rec domain.DispatchRecord) error
}

// DispatchInput is the per-run configuration of the dispatcher. Text, when
// set, replaces the composed greeting; Message is the body line appended to
// the greeting otherwise.
type DispatchInput struct {
	Mode             domain.SendMode
	Text             string
	Message          string
	Location         *time.Location
	Thresholds       Thresholds
	Recipients       []string
	EstimateAudience bool
	DryRun           bool
}

type DispatchOutput struct {
	RunID      string
	Mode       domain.SendMode
	Text       string
	Skipped    bool
	Reasons    []string
	Recipients int
	Batches    int
	Attempts   int
	DryRun     bool
}

// DispatchService sends the daily message after the quota guard.
type DispatchService struct {
	api    MessagingAPI
	ledger DispatchLedger
	pacer  Pacer
	logger *slog.Logger
	now    func() time.Time
}

// NewDispatchService wires the dispatcher. ledger and pacer are optional.
func NewDispatchService(api MessagingAPI, ledger DispatchLedger, pacer Pacer, logger *slog.Logger) (*DispatchService, error) {
	if api == nil {
		return nil, errors.New("usecase: messaging api must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchService{
		api:    api,
		ledger: ledger,
		pacer:  pacer,
		logger: logger,
		now:    time.Now,
	}, nil
}

// ParseMode normalizes a mode selector. "push" is folded into multicast.
func ParseMode(s string) (domain.SendMode, error) {
	switch domain.SendMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", domain.ModeBroadcast:
		return domain.ModeBroadcast, nil
	case domain.ModeMulticast, domain.ModePush:
		return domain.ModeMulticast, nil
	default:
		return "", newError(ErrorInvalidInput, "unknown_mode", fmt.Errorf("mode %q", s))
	}
}

// Run performs one dispatch. A guard skip or an already-claimed day is not an
// error; the output reports Skipped with the reasons.
func (s *DispatchService) Run(ctx context.Context, in DispatchInput) (DispatchOutput, error) {
	mode, err := ParseMode(string(in.Mode))
	if err != nil {
		return DispatchOutput{}, err
	}
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	now := s.now().In(loc)

	text := in.Text
	if strings.TrimSpace(text) == "" {
		text = ComposeGreeting(now, in.Message)
	}
	out := DispatchOutput{RunID: newUUID(), Mode: mode, Text: text, DryRun: in.DryRun}
	rec := domain.DispatchRecord{Day: now.Format("2006-01-02"), RunID: out.RunID, Mode: mode}

	useLedger := s.ledger != nil && !in.DryRun
	if useLedger {
		if err := s.ledger.Claim(ctx, rec); err != nil {
			if errors.Is(err, domain.ErrAlreadyDispatched) {
				out.Skipped = true
				out.Reasons = []string{fmt.Sprintf("already dispatched for %s", rec.Day)}
				s.logger.InfoContext(ctx, "dispatch skipped", "outcome", "SKIP", "run_id", out.RunID, "reasons", out.Reasons)
				return out, nil
			}
			return DispatchOutput{}, newError(ErrorInternal, "ledger_claim_error", err)
		}
	}

	out, err = s.dispatch(ctx, mode, in, out)
	if useLedger {
		rec.Recipients, rec.Batches, rec.Attempts, rec.Reasons = out.Recipients, out.Batches, out.Attempts, out.Reasons
		switch {
		case err != nil:
			rec.Status, rec.Error = domain.DispatchFailed, err.Error()
		case out.Skipped:
			rec.Status = domain.DispatchSkipped
		default:
			rec.Status = domain.DispatchSent
		}
		if cerr := s.ledger.Complete(ctx, rec); cerr != nil {
			if err == nil {
				err = newError(ErrorInternal, "ledger_complete_error", cerr)
			} else {
				s.logger.ErrorContext(ctx, "ledger update failed", "run_id", out.RunID, "err", cerr)
			}
		}
	}
	return out, err
}

func (s *DispatchService) dispatch(ctx context.Context, mode domain.SendMode, in DispatchInput, out DispatchOutput) (DispatchOutput, error) {
	var (
		recipients   []string
		expectedCost int64
	)
	switch {
	case mode == domain.ModeMulticast:
		recipients = in.Recipients
		if len(recipients) == 0 {
			ids, err := s.followers(ctx)
			if err != nil {
				return out, err
			}
			recipients = ids
		}
		if len(recipients) == 0 {
			out.Skipped = true
			out.Reasons = []string{"no recipients"}
			s.logger.InfoContext(ctx, "dispatch skipped", "outcome", "SKIP", "run_id", out.RunID, "reasons", out.Reasons)
			return out, nil
		}
		expectedCost = int64(len(recipients))
	case in.EstimateAudience:
		ids, err := s.followers(ctx)
		if err != nil {
			return out, err
		}
		expectedCost = int64(len(ids))
	}
	out.Recipients = len(recipients)

	decision, err := s.checkQuota(ctx, expectedCost, in.Thresholds)
	if err != nil {
		return out, err
	}
	if decision.Skip {
		out.Skipped = true
		out.Reasons = decision.Reasons
		s.logger.InfoContext(ctx, "quota guard triggered, not sending",
			"outcome", "SKIP", "run_id", out.RunID, "reasons", strings.Join(decision.Reasons, "; "))
		return out, nil
	}

	messages := []domain.TextMessage{domain.NewTextMessage(out.Text)}
	if mode == domain.ModeBroadcast {
		out.Batches = 1
		if in.DryRun {
			s.logger.InfoContext(ctx, "dry run: would broadcast", "run_id", out.RunID, "text", out.Text)
			return out, nil
		}
		out.Attempts++
		if err := s.api.Broadcast(ctx, messages); err != nil {
			return out, newError(ErrorUpstream, "broadcast_error", err)
		}
		return out, nil
	}

	chunks := Chunk(recipients, multicastBatchSize)
	out.Batches = len(chunks)
	if in.DryRun {
		s.logger.InfoContext(ctx, "dry run: would multicast", "run_id", out.RunID,
			"recipients", out.Recipients, "batches", out.Batches, "text", out.Text)
		return out, nil
	}
	for i, chunk := range chunks {
		if s.pacer != nil {
			if err := s.pacer.Wait(ctx); err != nil {
				return out, newError(ErrorInternal, "pacer_wait_error", err)
			}
		}
		out.Attempts++
		if err := s.api.Multicast(ctx, chunk, messages); err != nil {
			return out, newError(ErrorUpstream, fmt.Sprintf("multicast_error_batch_%d", i+1), err)
		}
	}
	return out, nil
}

// checkQuota fetches a fresh quota snapshot and evaluates the guard.
func (s *DispatchService) checkQuota(ctx context.Context, expectedCost int64, th Thresholds) (QuotaDecision, error) {
	kind, allowance, err := s.api.MessageQuota(ctx)
	if err != nil {
		return QuotaDecision{}, newError(ErrorUpstream, "quota_error", err)
	}
	used, err := s.api.MessageConsumption(ctx)
	if err != nil {
		return QuotaDecision{}, newError(ErrorUpstream, "consumption_error", err)
	}
	snap := domain.QuotaSnapshot{Kind: kind, Allowance: allowance, Consumed: used}
	if !snap.Metered() {
		s.logger.InfoContext(ctx, "quota guard bypassed", "plan", kind)
	} else {
		s.logger.InfoContext(ctx, "quota", "plan", kind, "quota", allowance, "used", used,
			"remain", snap.Remaining(), "ratio", fmt.Sprintf("%.3f", snap.Ratio()), "expected_cost", expectedCost)
	}
	return EvaluateQuota(snap, expectedCost, th), nil
}

// followers enumerates every follower ID, following continuation cursors until
// the server stops returning one.
func (s *DispatchService) followers(ctx context.Context) ([]string, error) {
	var (
		ids   []string
		start string
	)
	for {
		page, next, err := s.api.FollowerIDs(ctx, start, followersPageSize)
		if err != nil {
			return nil, newError(ErrorUpstream, "followers_error", err)
		}
		ids = append(ids, page...)
		if next == "" {
			return ids, nil
		}
		if next == start {
			return nil, newError(ErrorUpstream, "followers_cursor_stuck", fmt.Errorf("cursor %q repeated", next))
		}
		start = next
	}
}

var newUUID = func() string {
	return uuid.NewString()
}
