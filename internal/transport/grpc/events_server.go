package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"clubplanner/backend/internal/domain"
	"clubplanner/backend/internal/service/events"
	"clubplanner/backend/internal/store"
)

type EventsServer struct {
	svc eventsService
	log *slog.Logger
}

var _ EventsServiceServer = (*EventsServer)(nil)

type eventsService interface {
	Create(ctx context.Context, in events.CreateInput) (events.CreateResult, error)
	Preview(ctx context.Context, start time.Time, in events.RuleInput) (events.PreviewResult, error)
	Update(ctx context.Context, in events.UpdateInput) (events.UpdateResult, error)
	Delete(ctx context.Context, userID string, eventID uuid.UUID, scope events.Scope) (events.DeleteResult, error)
	Restore(ctx context.Context, userID string, eventID uuid.UUID, mode domain.RestoreMode) (domain.Event, error)
	Get(ctx context.Context, userID string, eventID uuid.UUID) (domain.Event, error)
	List(ctx context.Context, userID string, windowStart, windowEnd time.Time) ([]domain.Event, error)
	ListTrash(ctx context.Context, userID string) ([]domain.Event, error)
	ListUnallocated(ctx context.Context, userID string) ([]domain.Event, error)
	ListSeries(ctx context.Context, userID string, seriesID uuid.UUID) (domain.Series, []domain.Event, error)
}

func NewEventsServer(svc eventsService, log *slog.Logger) *EventsServer {
	if log == nil {
		log = slog.Default()
	}
	return &EventsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.events")),
	}
}

func (s *EventsServer) CreateEvent(ctx context.Context, req *CreateEventRequest) (*CreateEventResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateEvent"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	in := events.CreateInput{
		UserID:         req.UserID,
		Title:          req.Title,
		Description:    req.Description,
		Observation:    req.Observation,
		CategoryID:     req.CategoryID,
		TagIDs:         req.TagIDs,
		IsRequirement:  req.IsRequirement,
		ObjectiveID:    req.ObjectiveID,
		StartTime:      fromProtoTime(req.StartTime),
		Rule:           fromProtoRule(req.Rule),
		IdempotencyKey: idempotencyKey(ctx),
	}

	res, err := s.svc.Create(ctx, in)
	if err != nil {
		if errors.Is(err, store.ErrIdempotencyConflict) {
			log.Info("event create idempotency conflict", slog.String("user_id", req.UserID))
			return nil, status.Error(codes.FailedPrecondition, "This request key was already used for a different event. Try again.")
		}
		return nil, s.statusError(log, "event create failed", err, req.UserID)
	}

	out := &CreateEventResponse{Events: toProtoEvents(res.Events)}
	if res.Series != nil {
		out.Series = toProtoSeries(*res.Series)
		log.Info(
			"event series created",
			slog.String("series_id", res.Series.ID.String()),
			slog.String("user_id", req.UserID),
			slog.String("frequency", string(res.Series.Frequency)),
			slog.Int("occurrences", len(res.Events)),
		)
	} else if len(res.Events) == 1 {
		log.Info(
			"event created",
			slog.String("event_id", res.Events[0].ID.String()),
			slog.String("user_id", req.UserID),
		)
	}
	return out, nil
}

func (s *EventsServer) GetEvent(ctx context.Context, req *GetEventRequest) (*GetEventResponse, error) {
	log := s.log.With(slog.String("rpc", "GetEvent"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseID(log, "event_id", req.EventID, req.UserID)
	if err != nil {
		return nil, err
	}

	ev, err := s.svc.Get(ctx, req.UserID, id)
	if err != nil {
		return nil, s.statusError(log, "event get failed", err, req.UserID)
	}
	return &GetEventResponse{Event: toProtoEvent(ev)}, nil
}

func (s *EventsServer) ListEvents(ctx context.Context, req *ListEventsRequest) (*ListEventsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListEvents"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	var windowStart, windowEnd time.Time
	if req.WindowStart != nil {
		windowStart = req.WindowStart.AsTime()
	}
	if req.WindowEnd != nil {
		windowEnd = req.WindowEnd.AsTime()
	}

	rows, err := s.svc.List(ctx, req.UserID, windowStart, windowEnd)
	if err != nil {
		return nil, s.statusError(log, "events list failed", err, req.UserID)
	}

	log.Debug(
		"events listed",
		slog.String("user_id", req.UserID),
		slog.Int("count", len(rows)),
		slog.Time("window_start", windowStart),
		slog.Time("window_end", windowEnd),
	)
	return &ListEventsResponse{Events: toProtoEvents(rows)}, nil
}

func (s *EventsServer) ListTrash(ctx context.Context, req *ListTrashRequest) (*ListEventsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListTrash"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	rows, err := s.svc.ListTrash(ctx, req.UserID)
	if err != nil {
		return nil, s.statusError(log, "trash list failed", err, req.UserID)
	}
	return &ListEventsResponse{Events: toProtoEvents(rows)}, nil
}

func (s *EventsServer) ListUnallocatedEvents(ctx context.Context, req *ListUnallocatedEventsRequest) (*ListEventsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListUnallocatedEvents"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	rows, err := s.svc.ListUnallocated(ctx, req.UserID)
	if err != nil {
		return nil, s.statusError(log, "unallocated list failed", err, req.UserID)
	}
	return &ListEventsResponse{Events: toProtoEvents(rows)}, nil
}

func (s *EventsServer) ListSeriesEvents(ctx context.Context, req *ListSeriesEventsRequest) (*ListSeriesEventsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListSeriesEvents"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseID(log, "series_id", req.SeriesID, req.UserID)
	if err != nil {
		return nil, err
	}

	series, rows, err := s.svc.ListSeries(ctx, req.UserID, id)
	if err != nil {
		return nil, s.statusError(log, "series list failed", err, req.UserID)
	}
	return &ListSeriesEventsResponse{Series: toProtoSeries(series), Events: toProtoEvents(rows)}, nil
}

func (s *EventsServer) UpdateEvent(ctx context.Context, req *UpdateEventRequest) (*UpdateEventResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateEvent"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseID(log, "event_id", req.EventID, req.UserID)
	if err != nil {
		return nil, err
	}
	scope, err := events.ParseScope(req.Scope)
	if err != nil {
		log.Warn("invalid request", slog.Any("err", err), slog.String("user_id", req.UserID))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	in := events.UpdateInput{
		UserID:        req.UserID,
		EventID:       id,
		Scope:         scope,
		Title:         mo.PointerToOption(req.Title),
		Description:   mo.PointerToOption(req.Description),
		Observation:   mo.PointerToOption(req.Observation),
		CategoryID:    mo.PointerToOption(req.CategoryID),
		TagIDs:        mo.PointerToOption(req.TagIDs),
		IsRequirement: mo.PointerToOption(req.IsRequirement),
		ObjectiveID:   mo.PointerToOption(req.ObjectiveID),
	}
	switch {
	case req.ClearStartTime:
		in.StartTime = mo.Some[*time.Time](nil)
	case req.StartTime != nil:
		in.StartTime = mo.Some(fromProtoTime(req.StartTime))
	}
	if req.Rule != nil {
		in.Rule = mo.Some(fromProtoRule(req.Rule))
	}

	res, err := s.svc.Update(ctx, in)
	if err != nil {
		return nil, s.statusError(log, "event update failed", err, req.UserID)
	}

	log.Info(
		"event updated",
		slog.String("event_id", id.String()),
		slog.String("user_id", req.UserID),
		slog.String("scope", string(scope)),
		slog.Int("affected", len(res.Events)),
	)

	out := &UpdateEventResponse{Events: toProtoEvents(res.Events)}
	if res.Series != nil {
		out.Series = toProtoSeries(*res.Series)
	}
	return out, nil
}

func (s *EventsServer) DeleteEvent(ctx context.Context, req *DeleteEventRequest) (*DeleteEventResponse, error) {
	log := s.log.With(slog.String("rpc", "DeleteEvent"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseID(log, "event_id", req.EventID, req.UserID)
	if err != nil {
		return nil, err
	}
	scope, err := events.ParseScope(req.Scope)
	if err != nil {
		log.Warn("invalid request", slog.Any("err", err), slog.String("user_id", req.UserID))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.svc.Delete(ctx, req.UserID, id, scope)
	if err != nil {
		return nil, s.statusError(log, "event delete failed", err, req.UserID)
	}

	out := &DeleteEventResponse{
		Unscheduled: int32(res.Outcomes[domain.DeleteOutcomeUnscheduled]),
		Trashed:     int32(res.Outcomes[domain.DeleteOutcomeTrashed]),
		Purged:      int32(res.Outcomes[domain.DeleteOutcomePurged]),
	}
	log.Info(
		"event deleted",
		slog.String("event_id", id.String()),
		slog.String("user_id", req.UserID),
		slog.String("scope", string(scope)),
		slog.Int("unscheduled", int(out.Unscheduled)),
		slog.Int("trashed", int(out.Trashed)),
		slog.Int("purged", int(out.Purged)),
	)
	return out, nil
}

func (s *EventsServer) RestoreEvent(ctx context.Context, req *RestoreEventRequest) (*RestoreEventResponse, error) {
	log := s.log.With(slog.String("rpc", "RestoreEvent"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseID(log, "event_id", req.EventID, req.UserID)
	if err != nil {
		return nil, err
	}

	ev, err := s.svc.Restore(ctx, req.UserID, id, domain.RestoreMode(strings.ToLower(strings.TrimSpace(req.Mode))))
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			log.Info("restore of non-trashed event", slog.String("event_id", id.String()), slog.String("user_id", req.UserID))
			return nil, status.Error(codes.FailedPrecondition, "Only events in the trash can be restored.")
		}
		return nil, s.statusError(log, "event restore failed", err, req.UserID)
	}

	log.Info("event restored", slog.String("event_id", id.String()), slog.String("user_id", req.UserID))
	return &RestoreEventResponse{Event: toProtoEvent(ev)}, nil
}

func (s *EventsServer) PreviewOccurrences(ctx context.Context, req *PreviewOccurrencesRequest) (*PreviewOccurrencesResponse, error) {
	log := s.log.With(slog.String("rpc", "PreviewOccurrences"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.StartTime == nil {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"))
		return nil, status.Error(codes.InvalidArgument, "start_time is required")
	}

	res, err := s.svc.Preview(ctx, req.StartTime.AsTime(), fromProtoRule(req.Rule))
	if err != nil {
		return nil, s.statusError(log, "preview failed", err, "")
	}

	out := &PreviewOccurrencesResponse{
		Occurrences: make([]*timestamppb.Timestamp, 0, len(res.Occurrences)),
		RRule:       res.RRule,
	}
	for _, occ := range res.Occurrences {
		out.Occurrences = append(out.Occurrences, timestamppb.New(occ))
	}
	return out, nil
}

// statusError maps service and store errors onto gRPC status codes.
func (s *EventsServer) statusError(log *slog.Logger, msg string, err error, userID string) error {
	var vErr *events.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err), slog.String("user_id", userID))
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, store.ErrNotFound):
		log.Info("not found", slog.String("user_id", userID))
		return status.Error(codes.NotFound, "Event not found.")
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrIdempotencyConflict):
		log.Info("conflict", slog.Any("err", err), slog.String("user_id", userID))
		return status.Error(codes.FailedPrecondition, "The event changed in a way that conflicts with this request.")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn(msg, slog.Any("err", err), slog.String("user_id", userID))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	default:
		log.Error(msg, slog.Any("err", err), slog.String("user_id", userID))
		return status.Error(codes.Internal, "internal error")
	}
}

func parseID(log *slog.Logger, field, raw, userID string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		log.Warn("invalid request", slog.String("reason", "invalid_"+field), slog.String("user_id", userID))
		return uuid.Nil, status.Error(codes.InvalidArgument, "invalid "+field)
	}
	return id, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func fromProtoTime(ts *timestamppb.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.AsTime()
	return &t
}

func fromProtoRule(r *RecurrenceRule) events.RuleInput {
	if r == nil {
		return events.RuleInput{}
	}
	in := events.RuleInput{
		Frequency:        r.Frequency,
		Interval:         int(r.Interval),
		Termination:      r.Termination,
		TerminationDate:  r.TerminationDate,
		TerminationCount: int(r.TerminationCount),
		TimeZone:         r.TimeZone,
	}
	for _, wd := range r.Weekdays {
		in.Weekdays = append(in.Weekdays, int(wd))
	}
	return in
}

func toProtoTime(t *time.Time) *timestamppb.Timestamp {
	if t == nil {
		return nil
	}
	return timestamppb.New(*t)
}

func toProtoEvent(e domain.Event) *Event {
	out := &Event{
		ID:            e.ID.String(),
		UserID:        e.UserID,
		Title:         e.Title,
		Description:   e.Description,
		Observation:   e.Observation,
		CategoryID:    e.CategoryID,
		TagIDs:        e.TagIDs,
		IsRequirement: e.IsRequirement,
		ObjectiveID:   e.ObjectiveID,
		StartTime:     toProtoTime(e.StartTime),
		Kind:          string(e.Kind),
		DeletedAt:     toProtoTime(e.DeletedAt),
		CreatedAt:     timestamppb.New(e.CreatedAt),
		UpdatedAt:     timestamppb.New(e.UpdatedAt),
	}
	if e.InSeries() {
		out.SeriesID = e.SeriesID.String()
	}
	if e.SeriesIndex != nil {
		idx := int32(*e.SeriesIndex)
		out.SeriesIndex = &idx
	}
	return out
}

func toProtoEvents(rows []domain.Event) []*Event {
	out := make([]*Event, 0, len(rows))
	for _, e := range rows {
		out = append(out, toProtoEvent(e))
	}
	return out
}

func toProtoSeries(s domain.Series) *Series {
	out := &Series{
		ID:          s.ID.String(),
		DTStart:     timestamppb.New(s.DTStart),
		Frequency:   string(s.Frequency),
		Interval:    int32(s.Interval),
		Termination: string(s.Termination),
		RRule:       s.RRule,
		Occurrences: int32(s.Occurrences),
	}
	for _, wd := range s.Weekdays {
		out.Weekdays = append(out.Weekdays, int32(wd))
	}
	if s.TerminationDate != nil {
		out.TerminationDate = s.TerminationDate.Format(time.DateOnly)
	}
	if s.TerminationCount != nil {
		out.TerminationCount = int32(*s.TerminationCount)
	}
	return out
}
