package cache

import (
	"encoding/json"
	"fmt"
)

// EstimateSize returns the UTF-8 byte length of the JSON form of value.
// It is pure and is used both to decide whether chunking is required and
// to size individual chunks.
func EstimateSize(value any) (int, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("cache: estimate size: %w", err)
	}
	return len(payload), nil
}
