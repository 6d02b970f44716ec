// Package service runs roster ingestion: read the table, normalize shifts,
// resolve names to identities, then allocate the next version, diff it
// against the previous one and persist everything in one transaction.
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

	"rostersync/internal/roster/diff"
	"rostersync/internal/roster/metrics"
	"rostersync/internal/roster/models"
	"rostersync/internal/roster/store"
	"rostersync/internal/upstream"
	dErrors "rostersync/pkg/domain-errors"
	"rostersync/pkg/platform/sentinel"
	pstrings "rostersync/pkg/platform/strings"
	"rostersync/pkg/requestcontext"
)

const defaultVersionRetries = 3

// TableExtractor reads a roster image into a raw table.
type TableExtractor interface {
	Extract(ctx context.Context, fileURL string) (models.RawTable, error)
}

// ShiftNormalizer converts a raw table into canonical shifts.
type ShiftNormalizer interface {
	Normalize(ctx context.Context, table models.RawTable, weekHint *models.Date) ([]models.CanonicalShift, error)
}

// IdentityCatalogue lists the identities a venue's shifts resolve against.
type IdentityCatalogue interface {
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]models.Identity, error)
}

// Resolver matches shifts to identities.
type Resolver interface {
	ResolveBatch(ctx context.Context, shifts []models.CanonicalShift, candidates []models.Identity) ([]models.MatchResult, error)
}

// StoreTx runs fn with a transactional roster store.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store store.Store) error) error
}

// IngestRequest names the roster file to ingest for a venue.
type IngestRequest struct {
	VenueID  uuid.UUID
	FileURL  string
	WeekHint *models.Date
}

// Stats summarises one ingestion.
type Stats struct {
	Inserted       int `json:"inserted"`
	Changed        int `json:"changed"`
	Unchanged      int `json:"unchanged"`
	Removed        int `json:"removed"`
	Matched        int `json:"matched"`
	UnmatchedCount int `json:"unmatchedCount"`
}

// IngestResult is returned once a version is fully stored. Duplicate is set
// when the content matched the latest version and nothing new was written.
type IngestResult struct {
	RosterID       uuid.UUID
	Version        int
	WeekStart      models.Date
	Stats          Stats
	UnmatchedNames []string
	Duplicate      bool
}

type Service struct {
	extractor      TableExtractor
	normalizer     ShiftNormalizer
	identities     IdentityCatalogue
	resolver       Resolver
	tx             StoreTx
	versionRetries int
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
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

// WithVersionRetries bounds attempts at allocating the next version number.
func WithVersionRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.versionRetries = n
		}
	}
}

func New(extractor TableExtractor, normalizer ShiftNormalizer, identities IdentityCatalogue, resolver Resolver, tx StoreTx, opts ...Option) (*Service, error) {
	if extractor == nil {
		return nil, errors.New("table extractor is required")
	}
	if normalizer == nil {
		return nil, errors.New("shift normalizer is required")
	}
	if identities == nil {
		return nil, errors.New("identity catalogue is required")
	}
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if tx == nil {
		return nil, errors.New("roster store tx is required")
	}
	s := &Service{
		extractor:      extractor,
		normalizer:     normalizer,
		identities:     identities,
		resolver:       resolver,
		tx:             tx,
		versionRetries: defaultVersionRetries,
		tracer:         otel.Tracer("rostersync/roster"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ingest turns a roster file into a new stored version. Either the version
// with all its shifts and change records is committed, or nothing is.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "roster.Ingest",
		trace.WithAttributes(attribute.String("venue_id", req.VenueID.String())),
	)
	defer span.End()

	res, err := s.ingest(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveIngest(start)
		s.metrics.IncrementIngestion(outcome(res, err))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logError(ctx, "roster ingestion failed", err, "venue_id", req.VenueID)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("version", res.Version),
		attribute.Int("unmatched", res.Stats.UnmatchedCount),
	)
	return res, nil
}

func (s *Service) ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.VenueID == uuid.Nil || req.FileURL == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Missing required fields: venueId, fileUrl")
	}
	s.logInfo(ctx, "processing roster", "venue_id", req.VenueID)

	table, err := s.extract(ctx, req.FileURL)
	if err != nil {
		return nil, err
	}
	shifts, err := s.normalize(ctx, table, req.WeekHint)
	if err != nil {
		return nil, err
	}
	s.logInfo(ctx, "shifts extracted", "venue_id", req.VenueID, "shifts", len(shifts))

	matches, err := s.resolve(ctx, req.VenueID, shifts)
	if err != nil {
		return nil, err
	}

	key := models.WeekKey{VenueID: req.VenueID, WeekStart: weekStart(ctx, req.WeekHint, shifts)}
	return s.persist(ctx, key, req.FileURL, matches)
}

func (s *Service) extract(ctx context.Context, fileURL string) (models.RawTable, error) {
	ctx, span := s.tracer.Start(ctx, "roster.extract")
	defer span.End()
	defer s.observeStage("extract", time.Now())

	table, err := s.extractor.Extract(ctx, fileURL)
	if err != nil {
		return models.RawTable{}, upstreamError(err, "table extraction failed")
	}
	return table, nil
}

func (s *Service) normalize(ctx context.Context, table models.RawTable, hint *models.Date) ([]models.CanonicalShift, error) {
	ctx, span := s.tracer.Start(ctx, "roster.normalize")
	defer span.End()
	defer s.observeStage("normalize", time.Now())

	shifts, err := s.normalizer.Normalize(ctx, table, hint)
	if err != nil {
		return nil, upstreamError(err, "shift normalization failed")
	}
	return shifts, nil
}

func (s *Service) resolve(ctx context.Context, venueID uuid.UUID, shifts []models.CanonicalShift) ([]models.MatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "roster.resolve", trace.WithAttributes(attribute.Int("shifts", len(shifts))))
	defer span.End()
	defer s.observeStage("resolve", time.Now())

	identities, err := s.identities.ListByVenue(ctx, venueID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load venue identities")
	}
	matches, err := s.resolver.ResolveBatch(ctx, shifts, identities)
	if err != nil {
		return nil, upstreamError(err, "identity resolution failed")
	}
	return matches, nil
}

// persist allocates the next version number and writes the version, its
// shifts and the diff's change records. A lost race on the version number
// retries with a fresh read of the latest version.
func (s *Service) persist(ctx context.Context, key models.WeekKey, fileURL string, matches []models.MatchResult) (*IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "roster.persist")
	defer span.End()
	defer s.observeStage("persist", time.Now())

	var (
		result *IngestResult
		err    error
	)
	for attempt := 1; attempt <= s.versionRetries; attempt++ {
		err = s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
			var txErr error
			result, txErr = s.writeVersion(ctx, st, key, fileURL, matches)
			return txErr
		})
		if !errors.Is(err, sentinel.ErrConflict) {
			break
		}
		if s.metrics != nil {
			s.metrics.IncrementVersionRetry()
		}
		s.logInfo(ctx, "version allocation conflict, retrying",
			"venue_id", key.VenueID,
			"week_start", key.WeekStart,
			"attempt", attempt,
		)
	}
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return nil, dErrors.Wrap(err, dErrors.CodeConflict, "roster version allocation kept losing to concurrent ingestions")
	case err != nil:
		if _, ok := dErrors.As(err); ok {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store roster version")
	}

	if result.Duplicate {
		if s.metrics != nil {
			s.metrics.IncrementDuplicate()
		}
		s.logInfo(ctx, "roster content unchanged, reusing latest version",
			"roster_id", result.RosterID,
			"version", result.Version,
		)
		return result, nil
	}
	if s.metrics != nil {
		s.metrics.AddShiftChanges(string(models.ChangeInserted), result.Stats.Inserted)
		s.metrics.AddShiftChanges(string(models.ChangeChanged), result.Stats.Changed)
		s.metrics.AddShiftChanges(string(models.ChangeUnchanged), result.Stats.Unchanged)
		s.metrics.AddShiftChanges(string(models.ChangeRemoved), result.Stats.Removed)
		s.metrics.AddUnmatched(result.Stats.UnmatchedCount)
	}
	s.logInfo(ctx, "roster version created",
		"roster_id", result.RosterID,
		"version", result.Version,
		"matched", result.Stats.Matched,
		"unmatched", result.Stats.UnmatchedCount,
		"inserted", result.Stats.Inserted,
		"changed", result.Stats.Changed,
		"unchanged", result.Stats.Unchanged,
		"removed", result.Stats.Removed,
	)
	return result, nil
}

func (s *Service) writeVersion(ctx context.Context, st store.Store, key models.WeekKey, fileURL string, matches []models.MatchResult) (*IngestResult, error) {
	previous, err := st.LatestVersion(ctx, key)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		previous = nil
	case err != nil:
		return nil, fmt.Errorf("load latest version: %w", err)
	}

	current := models.RosterVersion{
		ID:            uuid.New(),
		VenueID:       key.VenueID,
		WeekStart:     key.WeekStart,
		Version:       1,
		Status:        models.RosterStatusDraft,
		SourceFileURL: fileURL,
		UploadedBy:    requestcontext.Actor(ctx),
		CreatedAt:     requestcontext.Now(ctx),
	}
	if previous != nil {
		current.Version = previous.Version + 1
	}
	current.Shifts = make([]models.ResolvedShift, 0, len(matches))
	for _, m := range matches {
		current.Shifts = append(current.Shifts, models.NewResolvedShift(current.ID, m))
	}
	current.Totals = models.ComputeTotals(current.Shifts)
	current.ContentHash = Fingerprint(key, current.Shifts)

	if previous != nil && previous.ContentHash == current.ContentHash {
		return duplicateResult(previous), nil
	}

	d := diff.Compute(previous, current)
	for i := range d.Changes {
		d.Changes[i].ID = uuid.New()
		d.Changes[i].CreatedAt = current.CreatedAt
	}

	if err := st.InsertVersion(ctx, &current); err != nil {
		return nil, err
	}
	if err := st.InsertShifts(ctx, current.Shifts); err != nil {
		return nil, err
	}
	if err := st.InsertChanges(ctx, d.Changes); err != nil {
		return nil, err
	}

	return &IngestResult{
		RosterID:  current.ID,
		Version:   current.Version,
		WeekStart: key.WeekStart,
		Stats: Stats{
			Inserted:       d.Inserted,
			Changed:        d.Changed,
			Unchanged:      d.Unchanged,
			Removed:        d.Removed,
			Matched:        current.Totals.MatchedShifts,
			UnmatchedCount: current.Totals.UnmatchedShifts,
		},
		UnmatchedNames: unmatchedNames(current.Shifts),
	}, nil
}

func duplicateResult(v *models.RosterVersion) *IngestResult {
	return &IngestResult{
		RosterID:  v.ID,
		Version:   v.Version,
		WeekStart: v.WeekStart,
		Stats: Stats{
			Unchanged:      v.Totals.MatchedShifts,
			Matched:        v.Totals.MatchedShifts,
			UnmatchedCount: v.Totals.UnmatchedShifts,
		},
		UnmatchedNames: unmatchedNames(v.Shifts),
		Duplicate:      true,
	}
}

// weekStart is the Monday of the hint, else of the first shift's date, else
// of today.
func weekStart(ctx context.Context, hint *models.Date, shifts []models.CanonicalShift) models.Date {
	switch {
	case hint != nil:
		return hint.WeekStart()
	case len(shifts) > 0:
		return shifts[0].Date.WeekStart()
	default:
		return models.DateOf(requestcontext.Now(ctx).UTC()).WeekStart()
	}
}

func unmatchedNames(shifts []models.ResolvedShift) []string {
	var names []string
	for _, sh := range shifts {
		if sh.IdentityID == nil {
			names = append(names, sh.OriginalName)
		}
	}
	return pstrings.DedupeAndTrim(names)
}

// upstreamError keeps coded errors as they are and classifies the rest.
func upstreamError(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return upstream.ToDomain(err, msg)
}

func outcome(res *IngestResult, err error) string {
	switch {
	case err == nil && res.Duplicate:
		return "duplicate"
	case err == nil:
		return "created"
	case dErrors.IsRetryable(err):
		return "retryable_failure"
	default:
		return string(dErrors.CodeOf(err))
	}
}

func (s *Service) observeStage(stage string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStage(stage, start)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, msg, args...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "error", err, "request_id", requestcontext.RequestID(ctx))
	s.logger.ErrorContext(ctx, msg, args...)
}
