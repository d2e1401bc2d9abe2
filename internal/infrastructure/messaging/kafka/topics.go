// Package kafka provides the producer, the side-effect adapters, and the
// transition request consumer.
package kafka

// Topic names.  The transition request topic is consumed by the worker
// daemon; the rest carry side effects outward.
const (
	TopicTransitionRequest = "casework.case.transition.request"
	TopicCaseBroadcast     = "casework.case.broadcast"
	TopicNotificationSend  = "casework.notification.send"
	TopicTransitionDLQ     = "casework.case.transition.dlq"
)

// Header keys attached to every outbound message.
const (
	HeaderEventType  = "event-type"
	HeaderEntityType = "entity-type"
	HeaderSource     = "source"
)

// sourceName identifies this service in message headers.
const sourceName = "appeal-engine"
