package task

import (
	"encoding/json"
	"fmt"
)

// Task is a message published to the stream named after its TaskType.
type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task any) ([]byte, error) {
	return json.Marshal(task)
}

// UnmarshalTask decodes a payload read back from a stream.
func UnmarshalTask[T any](data []byte) (*T, error) {
	var t T
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode task payload: %w", err)
	}
	return &t, nil
}
