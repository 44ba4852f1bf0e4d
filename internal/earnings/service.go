// Package earnings keeps the affiliate commission ledger.
package earnings

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"homecheff/internal/commission"
	"homecheff/internal/repository"
	"homecheff/utils"
)

type Store interface {
	ReferrerOf(ctx context.Context, referredUserID string) (repository.Affiliate, *repository.Affiliate, error)
	RecordCommission(ctx context.Context, ev repository.CommissionEvent, payouts []commission.Payout) (string, error)
	MovePayoutsBySource(ctx context.Context, sourceRef string, from, to commission.Status) (repository.PayoutBatch, error)
	MovePayoutsByAffiliate(ctx context.Context, affiliateID string, from, to commission.Status) (repository.PayoutBatch, error)
	AffiliateByID(ctx context.Context, id string) (repository.Affiliate, error)
	UserByID(ctx context.Context, id string) (repository.User, error)
}

type Mailer interface {
	Send(ctx context.Context, toEmail, toName, subject, tmpl string, data any) error
}

type Service struct {
	store  Store
	mailer Mailer
	rates  commission.Rates
	logger *zap.Logger
	tracer trace.Tracer
}

func NewService(store Store, mailer Mailer, rates commission.Rates, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		mailer: mailer,
		rates:  rates,
		logger: logger,
		tracer: otel.Tracer("homecheff/earnings"),
	}
}

// Record computes and stores the commission cascade for a revenue event of a
// referred user. It returns nil when the user was not referred. Recording the
// same source twice is a no-op returning nil.
func (s *Service) Record(ctx context.Context, referredUserID string, ev commission.Event, sourceRef string) (*commission.Cascade, error) {
	ctx, span := s.tracer.Start(ctx, "EarningsRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("referredUserID", referredUserID),
		attribute.String("eventType", string(ev.Type)),
		attribute.Int64("amountCents", ev.AmountCents),
		attribute.String("sourceRef", sourceRef),
	)

	direct, parent, err := s.store.ReferrerOf(ctx, referredUserID)
	if repository.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to find referrer")
		s.logger.Error("Failed to find referrer", zap.String("userID", referredUserID), zap.Error(err))
		return nil, fmt.Errorf("failed to find referrer: %w", err)
	}

	var parentCalc *commission.Affiliate
	if parent != nil {
		p := parent.Calc()
		parentCalc = &p
	}
	cascade, err := s.rates.Calculate(ev, direct.Calc(), parentCalc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid commission event")
		return nil, err
	}

	_, err = s.store.RecordCommission(ctx, repository.CommissionEvent{
		ReferredUserID: referredUserID,
		Type:           ev.Type,
		AmountCents:    ev.AmountCents,
		SourceRef:      sourceRef,
	}, cascade.Payouts())
	if errors.Is(err, repository.ErrDuplicate) {
		s.logger.Info("Commission already recorded", zap.String("sourceRef", sourceRef))
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to record commission")
		s.logger.Error("Failed to record commission", zap.String("sourceRef", sourceRef), zap.Error(err))
		return nil, fmt.Errorf("failed to record commission: %w", err)
	}
	span.SetAttributes(attribute.Int64("payoutTotalCents", cascade.Total()))

	for _, p := range cascade.Payouts() {
		s.notify(ctx, p.AffiliateID, "You earned a commission", utils.TemplateCommissionEarned, map[string]any{
			"Level":  p.Level,
			"Amount": utils.FormatCents(p.AmountCents),
			"Source": sourceRef,
		})
	}
	return &cascade, nil
}

// Settle makes the payouts of a settled revenue source available.
func (s *Service) Settle(ctx context.Context, sourceRef string) (repository.PayoutBatch, error) {
	ctx, span := s.tracer.Start(ctx, "EarningsSettle")
	defer span.End()

	b, err := s.store.MovePayoutsBySource(ctx, sourceRef, commission.StatusPending, commission.StatusAvailable)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to settle payouts")
		return repository.PayoutBatch{}, fmt.Errorf("failed to settle payouts: %w", err)
	}
	span.SetAttributes(attribute.Int("payoutCount", b.Count))
	return b, nil
}

// Dispatch pays out everything available to one affiliate.
func (s *Service) Dispatch(ctx context.Context, affiliateID string) (repository.PayoutBatch, error) {
	ctx, span := s.tracer.Start(ctx, "EarningsDispatch")
	defer span.End()
	span.SetAttributes(attribute.String("affiliateID", affiliateID))

	if _, err := s.store.AffiliateByID(ctx, affiliateID); err != nil {
		return repository.PayoutBatch{}, err
	}
	b, err := s.store.MovePayoutsByAffiliate(ctx, affiliateID, commission.StatusAvailable, commission.StatusPaid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to dispatch payouts")
		s.logger.Error("Failed to dispatch payouts", zap.String("affiliateID", affiliateID), zap.Error(err))
		return repository.PayoutBatch{}, fmt.Errorf("failed to dispatch payouts: %w", err)
	}
	s.logger.Info("Payouts dispatched", zap.String("affiliateID", affiliateID),
		zap.Int("count", b.Count), zap.Int64("totalCents", b.TotalCents))

	if b.Count > 0 {
		s.notify(ctx, affiliateID, "Your payout is on its way", utils.TemplatePayoutSent, map[string]any{
			"Count":  b.Count,
			"Amount": utils.FormatCents(b.TotalCents),
		})
	}
	return b, nil
}

// notify emails an affiliate. Mail problems never fail the ledger operation.
func (s *Service) notify(ctx context.Context, affiliateID, subject, tmpl string, data map[string]any) {
	a, err := s.store.AffiliateByID(ctx, affiliateID)
	if err != nil {
		s.logger.Warn("Failed to load affiliate for email", zap.String("affiliateID", affiliateID), zap.Error(err))
		return
	}
	u, err := s.store.UserByID(ctx, a.UserID)
	if err != nil {
		s.logger.Warn("Failed to load affiliate user for email", zap.String("affiliateID", affiliateID), zap.Error(err))
		return
	}
	data["Name"] = u.Name
	if err := s.mailer.Send(ctx, u.Email, u.Name, subject, tmpl, data); err != nil {
		s.logger.Warn("Failed to send email", zap.String("to", u.Email), zap.Error(err))
	}
}
