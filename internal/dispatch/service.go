// Package dispatch matches couriers with paid orders waiting for delivery.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"homecheff/internal/delivery"
	"homecheff/internal/geo"
	"homecheff/internal/repository"
)

var (
	ErrNotEligible     = errors.New("dispatch: delivery is outside the courier's range")
	ErrInvalidPosition = errors.New("dispatch: invalid GPS position")
	ErrInvalidRadius   = errors.New("dispatch: radius must be positive")
)

type Store interface {
	DeliveryProfile(ctx context.Context, courierID string) (repository.DeliveryProfile, error)
	OnlineCouriers(ctx context.Context) ([]repository.DeliveryProfile, error)
	SetCourierOnline(ctx context.Context, courierID string, online bool) error
	UpdateCourierSettings(ctx context.Context, courierID string, s repository.CourierSettings) error
	UpdateCourierLivePosition(ctx context.Context, courierID string, p geo.Point) error
	OpenCandidates(ctx context.Context) ([]delivery.Candidate, error)
	OpenCandidate(ctx context.Context, id string) (delivery.Candidate, error)
	ClaimCandidate(ctx context.Context, candidateID, courierID string) error
	CompleteCandidate(ctx context.Context, candidateID, courierID string) error
}

// Positions is the short-lived live GPS store.
type Positions interface {
	SetPosition(ctx context.Context, courierID string, p geo.Point) error
	Position(ctx context.Context, courierID string) (*geo.Point, error)
	Forget(ctx context.Context, courierID string) error
}

type Notifier interface {
	NotifyCourier(ctx context.Context, chatID int64, text string) error
}

type Service struct {
	store     Store
	positions Positions
	notifier  Notifier
	policy    delivery.Policy
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewService(store Store, positions Positions, notifier Notifier, policy delivery.Policy, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		positions: positions,
		notifier:  notifier,
		policy:    policy,
		logger:    logger,
		tracer:    otel.Tracer("homecheff/dispatch"),
	}
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// courier assembles the filter input from the stored profile, preferring a
// live fix from the cache over the persisted one.
func (s *Service) courier(ctx context.Context, p repository.DeliveryProfile) delivery.Courier {
	c := delivery.Courier{
		ID:            p.UserID,
		Online:        p.Online,
		GPSTracking:   p.GPSTracking,
		LivePosition:  p.Live,
		HomePosition:  p.Home,
		MaxDistanceKm: p.MaxDistanceKm,
	}
	if !p.GPSTracking {
		return c
	}
	live, err := s.positions.Position(ctx, p.UserID)
	if err != nil {
		s.logger.Warn("Failed to read cached courier position", zap.String("courierID", p.UserID), zap.Error(err))
		return c
	}
	if live != nil {
		c.LivePosition = live
	}
	return c
}

// Available lists the open deliveries the courier may accept.
func (s *Service) Available(ctx context.Context, courierID string) ([]delivery.Eligible, error) {
	ctx, span := s.tracer.Start(ctx, "DispatchAvailable")
	defer span.End()
	span.SetAttributes(attribute.String("courierID", courierID))

	profile, err := s.store.DeliveryProfile(ctx, courierID)
	if err != nil {
		fail(span, err, "Failed to find courier")
		s.logger.Error("Failed to find courier", zap.String("courierID", courierID), zap.Error(err))
		return nil, fmt.Errorf("failed to find courier: %w", err)
	}
	c := s.courier(ctx, profile)
	if !c.Online {
		return []delivery.Eligible{}, nil
	}

	cands, err := s.store.OpenCandidates(ctx)
	if err != nil {
		fail(span, err, "Failed to query open deliveries")
		s.logger.Error("Failed to query open deliveries", zap.Error(err))
		return nil, fmt.Errorf("failed to query open deliveries: %w", err)
	}

	out := s.policy.Filter(c, cands)
	span.SetAttributes(
		attribute.Int("candidateCount", len(cands)),
		attribute.Int("eligibleCount", len(out)),
		attribute.Float64("radiusKm", c.MaxDistanceKm),
	)
	return out, nil
}

// NotifyNearby pushes a newly opened delivery to every online courier it is
// eligible for and returns how many were notified. Send failures are logged
// per courier and do not stop the others.
func (s *Service) NotifyNearby(ctx context.Context, cand delivery.Candidate) (int, error) {
	ctx, span := s.tracer.Start(ctx, "DispatchNotifyNearby")
	defer span.End()
	span.SetAttributes(attribute.String("candidateID", cand.ID))

	couriers, err := s.store.OnlineCouriers(ctx)
	if err != nil {
		fail(span, err, "Failed to list online couriers")
		s.logger.Error("Failed to list online couriers", zap.Error(err))
		return 0, fmt.Errorf("failed to list online couriers: %w", err)
	}

	notified := 0
	for _, p := range couriers {
		if p.TelegramChatID == nil {
			continue
		}
		e, ok := s.policy.Evaluate(s.courier(ctx, p), cand)
		if !ok {
			continue
		}
		text := fmt.Sprintf("New delivery nearby: pickup %.1f km, drop-off %.1f km, about %d min, fee %d cents.",
			e.PickupKm, e.DropoffKm, e.EstimatedMinutes, e.FeeCents)
		if err := s.notifier.NotifyCourier(ctx, *p.TelegramChatID, text); err != nil {
			s.logger.Warn("Failed to notify courier", zap.String("courierID", p.UserID), zap.Error(err))
			continue
		}
		notified++
	}
	span.SetAttributes(attribute.Int("notifiedCount", notified))
	return notified, nil
}

// Claim assigns the delivery to the courier if the courier is still in range.
// A delivery already taken by someone else yields repository.ErrConflict.
func (s *Service) Claim(ctx context.Context, courierID, candidateID string) (delivery.Eligible, error) {
	ctx, span := s.tracer.Start(ctx, "DispatchClaim")
	defer span.End()
	span.SetAttributes(attribute.String("courierID", courierID), attribute.String("candidateID", candidateID))

	profile, err := s.store.DeliveryProfile(ctx, courierID)
	if err != nil {
		fail(span, err, "Failed to find courier")
		return delivery.Eligible{}, fmt.Errorf("failed to find courier: %w", err)
	}
	cand, err := s.store.OpenCandidate(ctx, candidateID)
	if err != nil {
		if repository.IsNotFound(err) {
			err = repository.ErrConflict
		}
		fail(span, err, "Delivery not open")
		return delivery.Eligible{}, err
	}

	e, ok := s.policy.Evaluate(s.courier(ctx, profile), cand)
	if !ok {
		fail(span, ErrNotEligible, "Courier not eligible")
		return delivery.Eligible{}, ErrNotEligible
	}
	if err := s.store.ClaimCandidate(ctx, candidateID, courierID); err != nil {
		fail(span, err, "Failed to claim delivery")
		if !errors.Is(err, repository.ErrConflict) {
			s.logger.Error("Failed to claim delivery", zap.String("candidateID", candidateID), zap.Error(err))
		}
		return delivery.Eligible{}, err
	}
	s.logger.Info("Delivery claimed", zap.String("candidateID", candidateID), zap.String("courierID", courierID))
	return e, nil
}

func (s *Service) Complete(ctx context.Context, courierID, candidateID string) error {
	ctx, span := s.tracer.Start(ctx, "DispatchComplete")
	defer span.End()

	if err := s.store.CompleteCandidate(ctx, candidateID, courierID); err != nil {
		fail(span, err, "Failed to complete delivery")
		return err
	}
	s.logger.Info("Delivery completed", zap.String("candidateID", candidateID), zap.String("courierID", courierID))
	return nil
}

// SetOnline toggles availability. Going offline drops the cached live fix.
func (s *Service) SetOnline(ctx context.Context, courierID string, online bool) error {
	if err := s.store.SetCourierOnline(ctx, courierID, online); err != nil {
		return err
	}
	if !online {
		if err := s.positions.Forget(ctx, courierID); err != nil {
			s.logger.Warn("Failed to drop cached courier position", zap.String("courierID", courierID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) UpdateSettings(ctx context.Context, courierID string, settings repository.CourierSettings) error {
	if settings.MaxDistanceKm <= 0 {
		return ErrInvalidRadius
	}
	if settings.Home != nil && !settings.Home.Valid() {
		return ErrInvalidPosition
	}
	return s.store.UpdateCourierSettings(ctx, courierID, settings)
}

// ReportPosition records a live GPS fix in the cache and in the profile.
func (s *Service) ReportPosition(ctx context.Context, courierID string, p geo.Point) error {
	if !p.Valid() {
		return ErrInvalidPosition
	}
	if err := s.positions.SetPosition(ctx, courierID, p); err != nil {
		s.logger.Warn("Failed to cache courier position", zap.String("courierID", courierID), zap.Error(err))
	}
	return s.store.UpdateCourierLivePosition(ctx, courierID, p)
}
