package models

// Requests for transit endpoints and the compute topic. Defined in domain for reuse
// by the HTTP handlers, the Kafka handler and the CLI.

type TransitRequest struct {
	ProfileID string `query:"profile_id" json:"profile_id"`
	Birth     string `query:"birth" json:"birth" validate:"required"`
	TZOffset  int    `query:"tz_offset" json:"tz_offset" default:"0" validate:"gte=-840,lte=840"`
	TZ        string `query:"tz" json:"tz"`
	Month     int    `query:"month" json:"month" validate:"required,gte=1,lte=12"`
	Year      int    `query:"year" json:"year" validate:"required,gte=1,lte=9999"`
	Bodies    string `query:"bodies" json:"bodies"`
	Persist   bool   `query:"persist" json:"persist"`
}

// ComputeMessage is the payload consumed from the requests topic.
type ComputeMessage struct {
	RequestID string         `json:"request_id"`
	Request   TransitRequest `json:"request"`
}

// HistoryRequest lists stored episodes of a profile. From and To accept
// RFC3339, a date or unix seconds; empty bounds are open.
type HistoryRequest struct {
	ProfileID string `query:"profile_id" json:"profile_id" validate:"required"`
	From      string `query:"from" json:"from"`
	To        string `query:"to" json:"to"`
}

// StreamEvent is one frame of the progress stream.
type StreamEvent struct {
	Type   string         `json:"type"`
	Done   int            `json:"done,omitempty"`
	Total  int            `json:"total,omitempty"`
	Report *TransitReport `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// BodyInfo describes one entry of the body catalog.
type BodyInfo struct {
	ID    Body   `json:"id"`
	Label string `json:"label"`
	Slow  bool   `json:"slow"`
}
