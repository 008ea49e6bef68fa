package mykafka

import (
	"context"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
)

const EventSubmissionReceived = "submission_received"

// TopicSink forwards intake submissions to a topic as submission_received events.
type TopicSink struct {
	Producer *Producer
	Topic    string
}

func (s *TopicSink) Name() string { return "kafka" }

func (s *TopicSink) Deliver(ctx context.Context, sub intake.Submission) error {
	event := map[string]any{
		"type":       EventSubmissionReceived,
		"kind":       sub.Kind,
		"id":         sub.ID,
		"name":       sub.Name,
		"email":      sub.Email,
		"company":    sub.Company,
		"role":       sub.Role,
		"message":    sub.Message,
		"created_at": sub.CreatedAt,
	}
	return s.Producer.PublishEvent(ctx, s.Topic, sub.Email, event)
}
