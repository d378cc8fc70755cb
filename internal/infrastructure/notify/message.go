// Package notify delivers import run events to subscribers. Every adapter is
// best-effort: a failed or slow delivery is logged and dropped, never
// returned to the import path.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

// Message is the wire form shared by every adapter.
type Message struct {
	Event       string          `json:"event"`
	ImportRunID string          `json:"importRunId"`
	Data        importrun.Event `json:"data"`
}

func Encode(event importrun.Event) ([]byte, error) {
	payload, err := json.Marshal(Message{
		Event:       event.EventName(),
		ImportRunID: event.RunID(),
		Data:        event,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.EventName(), err)
	}
	return payload, nil
}
