package gateway

// EventType tags a ResultEvent.
type EventType string

const (
	EventPartial EventType = "partial"
	EventFinal   EventType = "final"
	EventError   EventType = "error"
)

// ResultEvent is one incremental transcription result as delivered to the
// socket boundary. Seq carries the chunk sequence number so clients can
// reorder results from concurrently processed chunks; within one chunk the
// partial always precedes the final.
type ResultEvent struct {
	Type EventType `json:"type"`
	Text string    `json:"text"`
	Seq  int       `json:"seq"`
}
