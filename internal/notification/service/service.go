// Package service runs the notification sweep: pick up recent unclaimed
// change records, claim them per user, write copy and deliver it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rostersync/internal/notification/batch"
	"rostersync/internal/notification/metrics"
	"rostersync/internal/notification/models"
	rostermodels "rostersync/internal/roster/models"
	dErrors "rostersync/pkg/domain-errors"
	"rostersync/pkg/platform/sentinel"
	"rostersync/pkg/requestcontext"
)

const (
	defaultWindow   = 10 * time.Minute
	defaultTimezone = "Australia/Sydney"
)

// Store reads pending change records and recipients and records claims and
// sent notifications.
type Store interface {
	PendingChanges(ctx context.Context, since time.Time) ([]rostermodels.ShiftChange, error)
	ClaimChange(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ReleaseChange(ctx context.Context, id uuid.UUID, claimedAt time.Time) (bool, error)
	ShiftsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]rostermodels.ResolvedShift, error)
	Recipient(ctx context.Context, userID uuid.UUID) (*models.Recipient, error)
	AppendLog(ctx context.Context, entry models.LogEntry) error
}

// CopyGenerator writes the title and body for one user's changes.
type CopyGenerator interface {
	Generate(ctx context.Context, req models.CopyRequest) (models.Copy, error)
}

// PushSender delivers to a recipient's devices.
type PushSender interface {
	SendPush(ctx context.Context, r models.Recipient, c models.Copy) error
}

// EmailSender delivers to a recipient's address.
type EmailSender interface {
	SendEmail(ctx context.Context, r models.Recipient, c models.Copy) error
}

// Result is what a sweep reports back to its caller.
type Result struct {
	Processed int    `json:"processed"`
	Message   string `json:"message"`
}

type Service struct {
	store    Store
	copy     CopyGenerator
	push     PushSender
	email    EmailSender
	window   time.Duration
	timezone string
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithEmail enables the email channel. Without it, email preferences are
// ignored.
func WithEmail(sender EmailSender) Option {
	return func(s *Service) {
		s.email = sender
	}
}

// WithWindow sets how far back a sweep looks for unclaimed changes.
func WithWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithTimezone sets the timezone quoted to the copy generator.
func WithTimezone(tz string) Option {
	return func(s *Service) {
		if tz != "" {
			s.timezone = tz
		}
	}
}

func New(store Store, generator CopyGenerator, push PushSender, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("notification store is required")
	}
	if generator == nil {
		return nil, errors.New("copy generator is required")
	}
	if push == nil {
		return nil, errors.New("push sender is required")
	}
	s := &Service{
		store:    store,
		copy:     generator,
		push:     push,
		window:   defaultWindow,
		timezone: defaultTimezone,
		tracer:   otel.Tracer("rostersync/notification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sweep notifies every user with unclaimed changes inside the window. A
// failure for one user is logged and leaves that user's changes for the
// next sweep; it never aborts the others.
func (s *Service) Sweep(ctx context.Context) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "notification.Sweep")
	defer span.End()
	if s.metrics != nil {
		defer s.metrics.ObserveSweep(start)
	}

	now := requestcontext.Now(ctx)
	changes, err := s.store.PendingChanges(ctx, now.Add(-s.window))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending changes")
	}
	batches := batch.Build(changes, s.window, now)
	if len(batches) == 0 {
		return &Result{Processed: 0, Message: "No changes to process"}, nil
	}
	s.logInfo(ctx, "processing shift changes", "changes", len(changes), "users", len(batches))

	processed := 0
	for _, userID := range batch.Users(batches) {
		n, err := s.notifyUser(ctx, userID, batches[userID])
		processed += n
		if err != nil {
			s.logWarn(ctx, "notification skipped", "user_id", userID, "error", err)
		}
	}
	span.SetAttributes(attribute.Int("processed", processed))
	return &Result{
		Processed: processed,
		Message:   fmt.Sprintf("Processed %d shift change notifications", processed),
	}, nil
}

// notifyUser claims the user's changes and delivers one notification for
// the ones it won. It returns how many changes stay claimed.
func (s *Service) notifyUser(ctx context.Context, userID uuid.UUID, changes []rostermodels.ShiftChange) (int, error) {
	ctx, span := s.tracer.Start(ctx, "notification.notifyUser",
		trace.WithAttributes(attribute.String("user_id", userID.String())),
	)
	defer span.End()

	recipient, err := s.store.Recipient(ctx, userID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		// Nobody to address; claim so the records are not picked up again.
		claimed, _, err := s.claim(ctx, changes)
		return len(claimed), err
	case err != nil:
		return 0, fmt.Errorf("load recipient: %w", err)
	}

	claimed, claimedAt, err := s.claim(ctx, changes)
	if err != nil || len(claimed) == 0 {
		return len(claimed), err
	}

	channels := s.channels(*recipient)
	if len(channels) == 0 {
		s.logDebug(ctx, "no enabled channels, changes claimed without dispatch", "user_id", userID)
		return len(claimed), nil
	}

	msg, err := s.compose(ctx, *recipient, claimed)
	if err != nil {
		s.release(ctx, claimed, claimedAt)
		span.RecordError(err)
		return 0, err
	}

	sent, err := s.dispatch(ctx, *recipient, channels, msg)
	if len(sent) == 0 {
		s.release(ctx, claimed, claimedAt)
		span.RecordError(err)
		return 0, err
	}

	status := models.StatusSent
	if len(sent) < len(channels) {
		status = models.StatusPartial
	}
	if s.metrics != nil {
		s.metrics.IncrementNotification(status)
	}
	entry := models.LogEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      models.TypeShiftChange,
		Title:     msg.Title,
		Body:      msg.Body,
		SentVia:   sent,
		Status:    status,
		CreatedAt: claimedAt,
	}
	if err := s.store.AppendLog(ctx, entry); err != nil {
		s.logWarn(ctx, "failed to record notification", "user_id", userID, "error", err)
	}
	return len(claimed), nil
}

// claim takes each change with a conditional update. Changes another sweep
// got to first are dropped. The claim time is truncated to what the store
// keeps so a later release matches it exactly, and read from the wall clock
// rather than the request clock.
func (s *Service) claim(ctx context.Context, changes []rostermodels.ShiftChange) ([]rostermodels.ShiftChange, time.Time, error) {
	claimedAt := time.Now().UTC().Truncate(time.Microsecond)
	won := make([]rostermodels.ShiftChange, 0, len(changes))
	for _, c := range changes {
		ok, err := s.store.ClaimChange(ctx, c.ID, claimedAt)
		if err != nil {
			s.release(ctx, won, claimedAt)
			return nil, claimedAt, fmt.Errorf("claim change %s: %w", c.ID, err)
		}
		if !ok {
			if s.metrics != nil {
				s.metrics.IncrementClaimLost()
			}
			s.logDebug(ctx, "change already claimed", "change_id", c.ID)
			continue
		}
		c.NotifiedAt = &claimedAt
		won = append(won, c)
	}
	if s.metrics != nil {
		s.metrics.AddClaimed(len(won))
	}
	return won, claimedAt, nil
}

// release gives claims back so the next sweep retries them.
func (s *Service) release(ctx context.Context, changes []rostermodels.ShiftChange, claimedAt time.Time) {
	ctx = context.WithoutCancel(ctx)
	released := 0
	for _, c := range changes {
		ok, err := s.store.ReleaseChange(ctx, c.ID, claimedAt)
		if err != nil {
			s.logWarn(ctx, "failed to release claim", "change_id", c.ID, "error", err)
			continue
		}
		if ok {
			released++
		}
	}
	if s.metrics != nil && released > 0 {
		s.metrics.AddReleased(released)
	}
}

func (s *Service) compose(ctx context.Context, r models.Recipient, changes []rostermodels.ShiftChange) (models.Copy, error) {
	shifts, err := s.store.ShiftsByID(ctx, batch.ShiftRefs(changes))
	if err != nil {
		return models.Copy{}, fmt.Errorf("load shifts: %w", err)
	}
	oldShifts, newShifts := batch.Summarize(changes, shifts)
	msg, err := s.copy.Generate(ctx, models.CopyRequest{
		UserID:    r.UserID,
		UserName:  r.DisplayName,
		OldShifts: oldShifts,
		NewShifts: newShifts,
		Timezone:  s.timezone,
	})
	if err != nil {
		return models.Copy{}, err
	}
	return msg, nil
}

// dispatch sends on every channel and returns the ones that succeeded,
// plus the last failure.
func (s *Service) dispatch(ctx context.Context, r models.Recipient, channels []string, msg models.Copy) ([]string, error) {
	var (
		sent    []string
		lastErr error
	)
	for _, ch := range channels {
		var err error
		switch ch {
		case models.ChannelPush:
			err = s.push.SendPush(ctx, r, msg)
		case models.ChannelEmail:
			err = s.email.SendEmail(ctx, r, msg)
		}
		if err != nil {
			if s.metrics != nil {
				s.metrics.IncrementDispatchFailure(ch)
			}
			s.logWarn(ctx, "delivery failed", "user_id", r.UserID, "channel", ch, "error", err)
			lastErr = fmt.Errorf("send %s: %w", ch, err)
			continue
		}
		sent = append(sent, ch)
	}
	return sent, lastErr
}

func (s *Service) channels(r models.Recipient) []string {
	var out []string
	for _, ch := range r.Channels() {
		if ch == models.ChannelEmail && s.email == nil {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, msg, args...)
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.WarnContext(ctx, msg, args...)
}

func (s *Service) logDebug(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.DebugContext(ctx, msg, args...)
}
