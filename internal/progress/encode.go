package progress

import (
	"encoding/json"
	"fmt"
)

// encodeList stores string lists as JSONB columns.
func encodeList(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return data, nil
}
