package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/taskpilot/taskpilot/src/convert"
)

// JSONStringArray is a custom type for handling JSON arrays stored as strings in the database
type JSONStringArray []string

// Scan implements the sql.Scanner interface for JSONStringArray
func (j *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*j = []string{}
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "" || v == "[]" {
			*j = []string{}
			return nil
		}
		return json.Unmarshal([]byte(v), j)
	case []byte:
		if len(v) == 0 || string(v) == "[]" {
			*j = []string{}
			return nil
		}
		return json.Unmarshal(v, j)
	default:
		return fmt.Errorf("cannot scan type %T into JSONStringArray", value)
	}
}

// Value implements the driver.Valuer interface for JSONStringArray
func (j JSONStringArray) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	return json.Marshal(j)
}

// JSONToolCalls stores a message's tool calls as a JSON column.
type JSONToolCalls []convert.StoredToolCall

func (j *JSONToolCalls) Scan(value interface{}) error {
	return scanJSON(value, (*[]convert.StoredToolCall)(j))
}

func (j JSONToolCalls) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	return json.Marshal(j)
}

// JSONToolResults stores a message's tool results as a JSON column.
type JSONToolResults []convert.StoredToolResult

func (j *JSONToolResults) Scan(value interface{}) error {
	return scanJSON(value, (*[]convert.StoredToolResult)(j))
}

func (j JSONToolResults) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	return json.Marshal(j)
}

// JSONMap stores loosely-structured metadata as a JSON column.
type JSONMap map[string]interface{}

func (j *JSONMap) Scan(value interface{}) error {
	return scanJSON(value, (*map[string]interface{})(j))
}

func (j JSONMap) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "{}", nil
	}
	return json.Marshal(j)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	default:
		return fmt.Errorf("cannot scan type %T as JSON column", value)
	}
}
