package outbox

// Event is the envelope written to the outbox table inside the same
// transaction as the schedule mutation it announces. The Kafka topic equals
// EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics emitted by the scheduling service.
const (
	TopicEventBooked      = "scheduling.event.booked.v1"
	TopicEventRescheduled = "scheduling.event.rescheduled.v1"
)
