package grpc

import "google.golang.org/protobuf/types/known/timestamppb"

type Event struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	Observation   string                 `json:"observation,omitempty"`
	CategoryID    string                 `json:"category_id"`
	TagIDs        []string               `json:"tag_ids,omitempty"`
	IsRequirement bool                   `json:"is_requirement,omitempty"`
	ObjectiveID   string                 `json:"objective_id,omitempty"`
	StartTime     *timestamppb.Timestamp `json:"start_time,omitempty"`
	Kind          string                 `json:"kind"`
	DeletedAt     *timestamppb.Timestamp `json:"deleted_at,omitempty"`
	SeriesID      string                 `json:"series_id,omitempty"`
	SeriesIndex   *int32                 `json:"series_index,omitempty"`
	CreatedAt     *timestamppb.Timestamp `json:"created_at,omitempty"`
	UpdatedAt     *timestamppb.Timestamp `json:"updated_at,omitempty"`
}

type RecurrenceRule struct {
	Frequency string  `json:"frequency"`
	Interval  int32   `json:"interval,omitempty"`
	Weekdays  []int32 `json:"weekdays,omitempty"`
	// Termination is never, on_date or after_count.
	Termination      string `json:"termination,omitempty"`
	TerminationDate  string `json:"termination_date,omitempty"`
	TerminationCount int32  `json:"termination_count,omitempty"`
	TimeZone         string `json:"time_zone,omitempty"`
}

type Series struct {
	ID               string                 `json:"id"`
	DTStart          *timestamppb.Timestamp `json:"dtstart"`
	Frequency        string                 `json:"frequency"`
	Interval         int32                  `json:"interval"`
	Weekdays         []int32                `json:"weekdays,omitempty"`
	Termination      string                 `json:"termination"`
	TerminationDate  string                 `json:"termination_date,omitempty"`
	TerminationCount int32                  `json:"termination_count,omitempty"`
	RRule            string                 `json:"rrule"`
	Occurrences      int32                  `json:"occurrences"`
}

type CreateEventRequest struct {
	UserID        string                 `json:"user_id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description,omitempty"`
	Observation   string                 `json:"observation,omitempty"`
	CategoryID    string                 `json:"category_id,omitempty"`
	TagIDs        []string               `json:"tag_ids,omitempty"`
	IsRequirement bool                   `json:"is_requirement,omitempty"`
	ObjectiveID   string                 `json:"objective_id,omitempty"`
	StartTime     *timestamppb.Timestamp `json:"start_time,omitempty"`
	Rule          *RecurrenceRule        `json:"rule,omitempty"`
}

type CreateEventResponse struct {
	Events []*Event `json:"events"`
	Series *Series  `json:"series,omitempty"`
}

type GetEventRequest struct {
	UserID  string `json:"user_id"`
	EventID string `json:"event_id"`
}

type GetEventResponse struct {
	Event *Event `json:"event"`
}

type ListEventsRequest struct {
	UserID      string                 `json:"user_id"`
	WindowStart *timestamppb.Timestamp `json:"window_start,omitempty"`
	WindowEnd   *timestamppb.Timestamp `json:"window_end,omitempty"`
}

type ListEventsResponse struct {
	Events []*Event `json:"events"`
}

type ListTrashRequest struct {
	UserID string `json:"user_id"`
}

type ListUnallocatedEventsRequest struct {
	UserID string `json:"user_id"`
}

type ListSeriesEventsRequest struct {
	UserID   string `json:"user_id"`
	SeriesID string `json:"series_id"`
}

type ListSeriesEventsResponse struct {
	Series *Series  `json:"series"`
	Events []*Event `json:"events"`
}

// UpdateEventRequest carries a patch: nil fields are left unchanged.
type UpdateEventRequest struct {
	UserID  string `json:"user_id"`
	EventID string `json:"event_id"`
	// Scope is this (default) or all.
	Scope string `json:"scope,omitempty"`

	Title         *string                `json:"title,omitempty"`
	Description   *string                `json:"description,omitempty"`
	Observation   *string                `json:"observation,omitempty"`
	CategoryID    *string                `json:"category_id,omitempty"`
	TagIDs        *[]string              `json:"tag_ids,omitempty"`
	IsRequirement *bool                  `json:"is_requirement,omitempty"`
	ObjectiveID   *string                `json:"objective_id,omitempty"`
	StartTime     *timestamppb.Timestamp `json:"start_time,omitempty"`
	// ClearStartTime unschedules the event; it wins over StartTime.
	ClearStartTime bool            `json:"clear_start_time,omitempty"`
	Rule           *RecurrenceRule `json:"rule,omitempty"`
}

type UpdateEventResponse struct {
	Events []*Event `json:"events"`
	Series *Series  `json:"series,omitempty"`
}

type DeleteEventRequest struct {
	UserID  string `json:"user_id"`
	EventID string `json:"event_id"`
	Scope   string `json:"scope,omitempty"`
}

type DeleteEventResponse struct {
	Unscheduled int32 `json:"unscheduled"`
	Trashed     int32 `json:"trashed"`
	Purged      int32 `json:"purged"`
}

type RestoreEventRequest struct {
	UserID  string `json:"user_id"`
	EventID string `json:"event_id"`
	// Mode is original (default) or unallocated.
	Mode string `json:"mode,omitempty"`
}

type RestoreEventResponse struct {
	Event *Event `json:"event"`
}

type PreviewOccurrencesRequest struct {
	StartTime *timestamppb.Timestamp `json:"start_time"`
	Rule      *RecurrenceRule        `json:"rule,omitempty"`
}

type PreviewOccurrencesResponse struct {
	Occurrences []*timestamppb.Timestamp `json:"occurrences"`
	RRule       string                   `json:"rrule,omitempty"`
}
