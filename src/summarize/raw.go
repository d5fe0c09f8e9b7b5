// Package summarize turns raw tool outputs into short user-facing summaries.
package summarize

import (
	"encoding/json"
	"strconv"
)

// RawValue is the closed set of shapes a tool output can take. Tool payloads
// arrive as untrusted JSON; ParseRaw maps them onto one of these variants so
// downstream code can match exhaustively instead of poking at dynamic maps.
type RawValue interface {
	rawValue()
}

// RawEmpty is a missing or null tool output.
type RawEmpty struct{}

// RawText is a plain string output.
type RawText struct {
	Text string
}

// RawNumber is a numeric output.
type RawNumber struct {
	Value float64
}

// RawBool is a boolean output.
type RawBool struct {
	Value bool
}

// RawError is an output that signals a tool-level failure.
type RawError struct {
	Message string
}

// RawStructured is an object or array output. Items holds list entries when
// the payload was (or contained) an array; Metadata holds the well-known
// fields some tools attach. JSON keeps the original payload for storage and
// for the generic fallback summary.
type RawStructured struct {
	Items    []Item
	Metadata *Metadata
	JSON     json.RawMessage
}

func (RawEmpty) rawValue()      {}
func (RawText) rawValue()       {}
func (RawNumber) rawValue()     {}
func (RawBool) rawValue()       {}
func (RawError) rawValue()      {}
func (RawStructured) rawValue() {}

// Item is a single list entry from a structured payload. Only the fields the
// summary rules care about are retained.
type Item struct {
	Title   string `json:"title,omitempty"`
	DueDate string `json:"dueDate,omitempty"`
}

// Metadata holds the well-known fields tools attach alongside their output.
type Metadata struct {
	MissingRange bool   `json:"missing_range,omitempty"`
	ProjectCount *int   `json:"projectCount,omitempty"`
	TaskCount    *int   `json:"taskCount,omitempty"`
	Title        string `json:"title,omitempty"`
	Tasks        []Item `json:"tasks,omitempty"`
}

// ParseRaw decodes an arbitrary tool payload into the closed RawValue set.
// It never fails: payloads that are not valid JSON degrade to RawText of the
// raw bytes.
func ParseRaw(data []byte) RawValue {
	if len(data) == 0 {
		return RawEmpty{}
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return RawText{Text: string(data)}
	}

	switch val := v.(type) {
	case nil:
		return RawEmpty{}
	case string:
		return RawText{Text: val}
	case float64:
		return RawNumber{Value: val}
	case bool:
		return RawBool{Value: val}
	case []interface{}:
		return RawStructured{Items: parseItems(val), JSON: json.RawMessage(data)}
	case map[string]interface{}:
		return parseObject(val, data)
	default:
		return RawText{Text: string(data)}
	}
}

func parseObject(obj map[string]interface{}, data []byte) RawValue {
	if msg, ok := obj["error"].(string); ok && msg != "" {
		return RawError{Message: msg}
	}

	out := RawStructured{JSON: json.RawMessage(data)}

	if md, ok := obj["metadata"].(map[string]interface{}); ok {
		out.Metadata = parseMetadata(md)
	} else if hasMetadataFields(obj) {
		// Some tools put the metadata fields at the top level.
		out.Metadata = parseMetadata(obj)
	}

	for _, key := range []string{"items", "events", "tasks", "results"} {
		if arr, ok := obj[key].([]interface{}); ok {
			out.Items = parseItems(arr)
			break
		}
	}

	return out
}

func hasMetadataFields(obj map[string]interface{}) bool {
	for _, key := range []string{"missing_range", "projectCount", "taskCount", "tasks"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

func parseMetadata(md map[string]interface{}) *Metadata {
	out := &Metadata{}
	if b, ok := md["missing_range"].(bool); ok {
		out.MissingRange = b
	}
	if n, ok := md["projectCount"].(float64); ok {
		count := int(n)
		out.ProjectCount = &count
	}
	if n, ok := md["taskCount"].(float64); ok {
		count := int(n)
		out.TaskCount = &count
	}
	if s, ok := md["title"].(string); ok {
		out.Title = s
	}
	if arr, ok := md["tasks"].([]interface{}); ok {
		out.Tasks = parseItems(arr)
	}
	return out
}

func parseItems(arr []interface{}) []Item {
	items := make([]Item, 0, len(arr))
	for _, entry := range arr {
		item := Item{}
		if obj, ok := entry.(map[string]interface{}); ok {
			if s, ok := obj["title"].(string); ok {
				item.Title = s
			}
			if s, ok := obj["dueDate"].(string); ok {
				item.DueDate = s
			}
		}
		items = append(items, item)
	}
	return items
}

// EncodeRaw renders a RawValue back to JSON for persistence alongside the
// summary. RawStructured keeps its original payload bytes.
func EncodeRaw(v RawValue) json.RawMessage {
	switch val := v.(type) {
	case RawEmpty, nil:
		return json.RawMessage("null")
	case RawText:
		b, _ := json.Marshal(val.Text)
		return b
	case RawNumber:
		return json.RawMessage(strconv.FormatFloat(val.Value, 'f', -1, 64))
	case RawBool:
		return json.RawMessage(strconv.FormatBool(val.Value))
	case RawError:
		b, _ := json.Marshal(map[string]string{"error": val.Message})
		return b
	case RawStructured:
		if len(val.JSON) > 0 {
			return val.JSON
		}
		b, _ := json.Marshal(val.Items)
		return b
	default:
		return json.RawMessage("null")
	}
}
