package broadcast

import (
	"encoding/json"
	"fmt"
)

// formatEvent renders an Event as one SSE "data:" frame.
func formatEvent(event Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("broadcast: marshal event: %w", err)
	}
	return fmt.Sprintf("data: %s\n\n", data), nil
}
