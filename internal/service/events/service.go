package events

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"clubplanner/backend/internal/domain"
	"clubplanner/backend/internal/ical"
	"clubplanner/backend/internal/metrics"
	"clubplanner/backend/internal/recurrence"
	"clubplanner/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// ruleError turns engine argument errors into validation errors and passes
// everything else through.
func ruleError(err error) error {
	if errors.Is(err, recurrence.ErrInvalidArgument) {
		return validationError(err.Error())
	}
	return err
}

type Scope string

const (
	ScopeThis Scope = "this"
	ScopeAll  Scope = "all"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeThis:
		return ScopeThis, nil
	case ScopeAll:
		return ScopeAll, nil
	default:
		return "", validationError("scope must be this or all")
	}
}

type Service struct {
	repo     store.EventRepository
	expander *recurrence.Expander
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService wires the service. A nil expander uses the default occurrence
// cap; a nil metrics records nothing.
func NewService(repo store.EventRepository, expander *recurrence.Expander, m *metrics.Metrics) *Service {
	if expander == nil {
		expander = recurrence.NewExpander(recurrence.DefaultMaxOccurrences)
	}
	return &Service{repo: repo, expander: expander, metrics: m, now: time.Now}
}

// RuleInput is a recurrence rule as it arrives from a client.
type RuleInput struct {
	Frequency        string
	Interval         int
	Weekdays         []int
	Termination      string
	TerminationDate  string // YYYY-MM-DD
	TerminationCount int
	// TimeZone is the IANA zone whose wall clock the occurrences keep. Empty
	// means the zone of the start instant.
	TimeZone string
}

type CreateInput struct {
	UserID         string
	Title          string
	Description    string
	Observation    string
	CategoryID     string
	TagIDs         []string
	IsRequirement  bool
	ObjectiveID    string
	StartTime      *time.Time
	Rule           RuleInput
	IdempotencyKey string
}

// CreateResult holds the stored events in series order. Series is set only
// when the rule produced a series.
type CreateResult struct {
	Events []domain.Event
	Series *domain.Series
}

func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return CreateResult{}, validationError("title is required")
	}
	if in.UserID == "" {
		return CreateResult{}, validationError("user_id is required")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 256 {
		return CreateResult{}, validationError("idempotency_key too long")
	}

	start, rule, err := s.resolveRule(in.StartTime, in.Rule)
	if err != nil {
		return CreateResult{}, err
	}

	template := domain.Event{UserID: in.UserID}
	template.SetFields(normalizeFields(domain.EventFields{
		Title:         title,
		Description:   in.Description,
		Observation:   in.Observation,
		CategoryID:    in.CategoryID,
		TagIDs:        in.TagIDs,
		IsRequirement: in.IsRequirement,
		ObjectiveID:   in.ObjectiveID,
	}))

	if !rule.IsRecurring() {
		ev := template
		ev.StartTime = start
		if key != "" {
			ev.ID = idempotentID("create_event", in.UserID, key)
		}
		created, err := s.repo.CreateEvent(ctx, ev)
		if err != nil {
			return CreateResult{}, err
		}
		s.metrics.EventsCreated("single", 1)
		return CreateResult{Events: []domain.Event{created}}, nil
	}

	series, events, err := s.buildSeries(template, *start, rule)
	if err != nil {
		return CreateResult{}, err
	}
	if key != "" {
		series.ID = idempotentID("create_series", in.UserID, key)
	}

	saved, created, err := s.repo.CreateSeries(ctx, series, events)
	if err != nil {
		return CreateResult{}, err
	}
	s.metrics.EventsCreated("series", len(created))
	return CreateResult{Events: created, Series: &saved}, nil
}

type PreviewResult struct {
	Occurrences []time.Time
	RRule       string
}

// Preview expands a rule without storing anything.
func (s *Service) Preview(ctx context.Context, start time.Time, in RuleInput) (PreviewResult, error) {
	if start.IsZero() {
		return PreviewResult{}, validationError("start_time is required")
	}
	st, rule, err := s.resolveRule(&start, in)
	if err != nil {
		return PreviewResult{}, err
	}

	occs, err := s.expander.Expand(*st, rule)
	if err != nil {
		return PreviewResult{}, ruleError(err)
	}
	rr, err := s.expander.RRule(*st, rule)
	if err != nil {
		return PreviewResult{}, ruleError(err)
	}
	return PreviewResult{Occurrences: occs, RRule: rr}, nil
}

type UpdateInput struct {
	UserID  string
	EventID uuid.UUID
	Scope   Scope

	Title         mo.Option[string]
	Description   mo.Option[string]
	Observation   mo.Option[string]
	CategoryID    mo.Option[string]
	TagIDs        mo.Option[[]string]
	IsRequirement mo.Option[bool]
	ObjectiveID   mo.Option[string]
	// StartTime set to Some(nil) unschedules the event.
	StartTime mo.Option[*time.Time]
	Rule      mo.Option[RuleInput]
}

type UpdateResult struct {
	Events []domain.Event
	Series *domain.Series
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (UpdateResult, error) {
	if in.UserID == "" {
		return UpdateResult{}, validationError("user_id is required")
	}
	if in.EventID == uuid.Nil {
		return UpdateResult{}, validationError("event_id is required")
	}
	scope := in.Scope
	if scope == "" {
		scope = ScopeThis
	}

	ev, err := s.repo.GetEvent(ctx, in.UserID, in.EventID)
	if err != nil {
		return UpdateResult{}, err
	}
	if ev.IsTrashed() {
		return UpdateResult{}, validationError("trashed events cannot be edited")
	}

	fields := normalizeFields(applyPatch(ev.Fields(), in))
	if strings.TrimSpace(fields.Title) == "" {
		return UpdateResult{}, validationError("title is required")
	}

	if ev.InSeries() && scope == ScopeAll {
		if in.StartTime.IsPresent() || in.Rule.IsPresent() {
			return UpdateResult{}, validationError("start_time and rule cannot be changed for a whole series")
		}
		if _, err := s.repo.UpdateSeriesEvents(ctx, in.UserID, *ev.SeriesID, fields); err != nil {
			return UpdateResult{}, err
		}
		rows, err := s.repo.ListSeriesEvents(ctx, in.UserID, *ev.SeriesID)
		if err != nil {
			return UpdateResult{}, err
		}
		return UpdateResult{Events: rows}, nil
	}

	ev.SetFields(fields)
	if start, ok := in.StartTime.Get(); ok {
		ev.StartTime = start
	}
	// Editing a single occurrence takes it out of its series.
	ev.SeriesID = nil
	ev.SeriesIndex = nil

	ruleIn, hasRule := in.Rule.Get()
	if !hasRule {
		updated, err := s.repo.UpdateEvent(ctx, ev)
		if err != nil {
			return UpdateResult{}, err
		}
		return UpdateResult{Events: []domain.Event{updated}}, nil
	}

	start, rule, err := s.resolveRule(ev.StartTime, ruleIn)
	if err != nil {
		return UpdateResult{}, err
	}
	ev.StartTime = start
	if !rule.IsRecurring() {
		updated, err := s.repo.UpdateEvent(ctx, ev)
		if err != nil {
			return UpdateResult{}, err
		}
		return UpdateResult{Events: []domain.Event{updated}}, nil
	}

	series, events, err := s.buildSeries(ev, *start, rule)
	if err != nil {
		return UpdateResult{}, err
	}
	events[0].ID = ev.ID

	saved, converted, err := s.repo.ConvertToSeries(ctx, series, events)
	if err != nil {
		return UpdateResult{}, err
	}
	s.metrics.EventsCreated("series", len(converted)-1)
	return UpdateResult{Events: converted, Series: &saved}, nil
}

type DeleteResult struct {
	Outcomes map[domain.DeleteOutcome]int
}

// Delete applies the trash policy to the event, or with ScopeAll to every
// event of its series.
func (s *Service) Delete(ctx context.Context, userID string, eventID uuid.UUID, scope Scope) (DeleteResult, error) {
	if userID == "" {
		return DeleteResult{}, validationError("user_id is required")
	}
	if eventID == uuid.Nil {
		return DeleteResult{}, validationError("event_id is required")
	}

	ev, err := s.repo.GetEvent(ctx, userID, eventID)
	if err != nil {
		return DeleteResult{}, err
	}

	ids := []uuid.UUID{ev.ID}
	if scope == ScopeAll && ev.InSeries() {
		rows, err := s.repo.ListSeriesEvents(ctx, userID, *ev.SeriesID)
		if err != nil {
			return DeleteResult{}, err
		}
		ids = ids[:0]
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
	}

	outcomes, err := s.repo.DeleteEvents(ctx, userID, ids)
	if err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{Outcomes: outcomes}, nil
}

func (s *Service) Restore(ctx context.Context, userID string, eventID uuid.UUID, mode domain.RestoreMode) (domain.Event, error) {
	if userID == "" {
		return domain.Event{}, validationError("user_id is required")
	}
	if eventID == uuid.Nil {
		return domain.Event{}, validationError("event_id is required")
	}
	switch mode {
	case "":
		mode = domain.RestoreModeOriginal
	case domain.RestoreModeOriginal, domain.RestoreModeUnallocated:
	default:
		return domain.Event{}, validationError("restore mode must be original or unallocated")
	}
	return s.repo.RestoreEvent(ctx, userID, eventID, mode)
}

func (s *Service) Get(ctx context.Context, userID string, eventID uuid.UUID) (domain.Event, error) {
	if userID == "" {
		return domain.Event{}, validationError("user_id is required")
	}
	if eventID == uuid.Nil {
		return domain.Event{}, validationError("event_id is required")
	}
	return s.repo.GetEvent(ctx, userID, eventID)
}

func (s *Service) List(ctx context.Context, userID string, windowStart, windowEnd time.Time) ([]domain.Event, error) {
	if userID == "" {
		return nil, validationError("user_id is required")
	}

	start := windowStart.UTC()
	end := windowEnd.UTC()
	if !windowStart.IsZero() && !windowEnd.IsZero() && !end.After(start) {
		return nil, validationError("window_end must be after window_start")
	}
	return s.repo.ListEvents(ctx, userID, start, end)
}

func (s *Service) ListUnallocated(ctx context.Context, userID string) ([]domain.Event, error) {
	if userID == "" {
		return nil, validationError("user_id is required")
	}
	return s.repo.ListUnallocated(ctx, userID)
}

func (s *Service) ListTrash(ctx context.Context, userID string) ([]domain.Event, error) {
	if userID == "" {
		return nil, validationError("user_id is required")
	}
	return s.repo.ListTrash(ctx, userID)
}

func (s *Service) ListSeries(ctx context.Context, userID string, seriesID uuid.UUID) (domain.Series, []domain.Event, error) {
	if userID == "" {
		return domain.Series{}, nil, validationError("user_id is required")
	}
	if seriesID == uuid.Nil {
		return domain.Series{}, nil, validationError("series_id is required")
	}
	series, err := s.repo.GetSeries(ctx, userID, seriesID)
	if err != nil {
		return domain.Series{}, nil, err
	}
	rows, err := s.repo.ListSeriesEvents(ctx, userID, seriesID)
	if err != nil {
		return domain.Series{}, nil, err
	}
	return series, rows, nil
}

// ExportICS writes the user's scheduled events in the window as iCalendar.
func (s *Service) ExportICS(ctx context.Context, w io.Writer, userID string, windowStart, windowEnd time.Time) error {
	rows, err := s.List(ctx, userID, windowStart, windowEnd)
	if err != nil {
		return err
	}
	return ical.Export(w, rows, s.now())
}

// PurgeTrash permanently removes events that have sat in the trash longer
// than retention.
func (s *Service) PurgeTrash(ctx context.Context, retention time.Duration) (int, error) {
	if retention < 0 {
		return 0, validationError("retention must not be negative")
	}
	n, err := s.repo.PurgeTrash(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	s.metrics.TrashPurged(n)
	return n, nil
}

// resolveRule normalizes a client rule against the start instant. A
// recurring rule requires a start; the returned start is in the rule's
// time zone so expansion keeps its wall clock.
func (s *Service) resolveRule(start *time.Time, in RuleInput) (*time.Time, recurrence.Rule, error) {
	freq, err := recurrence.ParseFrequency(in.Frequency)
	if err != nil {
		return nil, recurrence.Rule{}, ruleError(err)
	}
	if freq == recurrence.FrequencyNone {
		return start, recurrence.Rule{Frequency: recurrence.FrequencyNone}, nil
	}
	if start == nil || start.IsZero() {
		return nil, recurrence.Rule{}, validationError("start_time is required for recurring events")
	}

	st := *start
	if tz := strings.TrimSpace(in.TimeZone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, recurrence.Rule{}, validationError("invalid time_zone")
		}
		st = st.In(loc)
	}

	term, err := recurrence.ParseTerminationMode(in.Termination)
	if err != nil {
		return nil, recurrence.Rule{}, ruleError(err)
	}

	interval := in.Interval
	if interval == 0 {
		interval = 1
	}

	rule := recurrence.Rule{
		Frequency:        freq,
		Interval:         interval,
		Termination:      term,
		TerminationCount: in.TerminationCount,
	}
	if term == recurrence.TerminationOnDate {
		if strings.TrimSpace(in.TerminationDate) == "" {
			return nil, recurrence.Rule{}, validationError("termination_date is required when termination is on_date")
		}
		d, err := recurrence.ParseDate(in.TerminationDate, st.Location())
		if err != nil {
			return nil, recurrence.Rule{}, ruleError(err)
		}
		rule.TerminationDate = d
	}

	if freq == recurrence.FrequencyWeekly {
		seen := make(map[int]struct{}, len(in.Weekdays))
		for _, wd := range in.Weekdays {
			if wd < 0 || wd > 6 {
				return nil, recurrence.Rule{}, validationError("weekdays must be between 0 (Sunday) and 6 (Saturday)")
			}
			if _, ok := seen[wd]; ok {
				continue
			}
			seen[wd] = struct{}{}
			rule.Weekdays = append(rule.Weekdays, time.Weekday(wd))
		}
		slices.Sort(rule.Weekdays)
	}

	if err := rule.Validate(); err != nil {
		return nil, recurrence.Rule{}, ruleError(err)
	}
	return &st, rule, nil
}

// buildSeries expands rule from start and returns the series row plus one
// event per occurrence copied from template.
func (s *Service) buildSeries(template domain.Event, start time.Time, rule recurrence.Rule) (domain.Series, []domain.Event, error) {
	occs, err := s.expander.Expand(start, rule)
	if err != nil {
		return domain.Series{}, nil, ruleError(err)
	}
	if len(occs) == 0 {
		return domain.Series{}, nil, validationError("recurrence rule produces no occurrences")
	}
	s.metrics.ObserveExpansion(string(rule.Frequency), len(occs))

	rr, err := s.expander.RRule(start, rule)
	if err != nil {
		return domain.Series{}, nil, ruleError(err)
	}

	series := domain.NewSeries(template.UserID, start, rule)
	series.RRule = rr
	series.Occurrences = len(occs)

	events := make([]domain.Event, len(occs))
	for i, occ := range occs {
		ev := domain.Event{UserID: template.UserID}
		ev.SetFields(template.Fields())
		ev.TagIDs = slices.Clone(template.TagIDs)
		ev.StartTime = &occ
		events[i] = ev
	}
	return series, events, nil
}

func applyPatch(f domain.EventFields, in UpdateInput) domain.EventFields {
	f.Title = strings.TrimSpace(in.Title.OrElse(f.Title))
	f.Description = in.Description.OrElse(f.Description)
	f.Observation = in.Observation.OrElse(f.Observation)
	f.CategoryID = in.CategoryID.OrElse(f.CategoryID)
	f.TagIDs = in.TagIDs.OrElse(f.TagIDs)
	f.IsRequirement = in.IsRequirement.OrElse(f.IsRequirement)
	f.ObjectiveID = in.ObjectiveID.OrElse(f.ObjectiveID)
	return f
}

func normalizeFields(f domain.EventFields) domain.EventFields {
	if strings.TrimSpace(f.CategoryID) == "" {
		f.CategoryID = domain.DefaultCategoryID
	}
	if f.TagIDs == nil {
		f.TagIDs = []string{}
	}
	return f
}

func idempotentID(op, userID, key string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("clubplanner:"+op+":"+userID+":"+key))
}
