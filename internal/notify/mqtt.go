package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher is satisfied by common/mqtt.Client.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTNotifier publishes retained events on forca/plans/<id>/report.
type MQTTNotifier struct {
	publisher Publisher
}

func NewMQTTNotifier(publisher Publisher) *MQTTNotifier {
	return &MQTTNotifier{publisher: publisher}
}

// ReportTopic returns the topic for a training plan.
func ReportTopic(trainingID string) string {
	return fmt.Sprintf("forca/plans/%s/report", trainingID)
}

func (n *MQTTNotifier) Notify(_ context.Context, ev ReportEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal report event: %w", err)
	}
	return n.publisher.Publish(ReportTopic(ev.TrainingID), true, payload)
}
