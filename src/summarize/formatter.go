package summarize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Severity classifies a summary for display and aggregation.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

const (
	// maxTextSummary caps plain-string summaries.
	maxTextSummary = 4000
	// maxJSONSummary caps the generic JSON fallback summary.
	maxJSONSummary = 300
	// maxOverdueTitles caps how many overdue task titles are named.
	maxOverdueTitles = 3
)

// Summary is the short user-facing rendering of one tool output. An empty
// Text means the output produced nothing worth showing.
type Summary struct {
	Text     string
	Severity Severity
}

// ToolResultSummary is the persisted form of a summarized tool output,
// stored alongside the raw result.
type ToolResultSummary struct {
	Raw      RawValue
	Summary  *string
	Status   Severity
	Title    string
	Metadata map[string]interface{}
}

// Formatter produces summaries for raw tool outputs. Now is injectable so
// overdue-date comparisons are testable; it defaults to time.Now.
type Formatter struct {
	Now func() time.Time
}

// NewFormatter returns a Formatter using the wall clock.
func NewFormatter() *Formatter {
	return &Formatter{Now: time.Now}
}

func (f *Formatter) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// Describe dispatches on the lower-cased tool name to a specialized rule,
// falling back to the generic rule. It never fails.
func (f *Formatter) Describe(toolName string, raw RawValue) Summary {
	switch normalizeToolName(toolName) {
	case "getcalendarevents", "listcalendarevents", "getupcomingevents":
		return f.describeCalendar(raw)
	case "getworkspacemap", "workspacemap":
		return f.describeWorkspace(raw)
	case "gettasks", "listtasks":
		return f.describeTasks(raw)
	default:
		return f.describeGeneric(raw)
	}
}

func normalizeToolName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, "-", "")
	return name
}

func (f *Formatter) describeCalendar(raw RawValue) Summary {
	s, ok := raw.(RawStructured)
	if !ok {
		return f.describeGeneric(raw)
	}
	if s.Metadata != nil && s.Metadata.MissingRange {
		return Summary{
			Text:     "Which dates should I look at? Please give me a start and end of the window you care about.",
			Severity: SeverityError,
		}
	}
	if s.Items != nil {
		if len(s.Items) == 0 {
			return Summary{Text: "No upcoming events found in that window.", Severity: SeverityInfo}
		}
		return Summary{Text: fmt.Sprintf("Retrieved %d events.", len(s.Items)), Severity: SeveritySuccess}
	}
	return f.describeGeneric(raw)
}

func (f *Formatter) describeWorkspace(raw RawValue) Summary {
	s, ok := raw.(RawStructured)
	if !ok {
		return f.describeGeneric(raw)
	}
	if s.Metadata != nil && s.Metadata.ProjectCount != nil && s.Metadata.TaskCount != nil {
		return Summary{
			Text:     fmt.Sprintf("Workspace summary: %d projects, %d tasks.", *s.Metadata.ProjectCount, *s.Metadata.TaskCount),
			Severity: SeveritySuccess,
		}
	}
	if s.Metadata != nil && s.Metadata.Title != "" {
		return Summary{Text: s.Metadata.Title, Severity: SeverityInfo}
	}
	return f.describeGeneric(raw)
}

func (f *Formatter) describeTasks(raw RawValue) Summary {
	s, ok := raw.(RawStructured)
	if !ok {
		return f.describeGeneric(raw)
	}

	tasks := s.Items
	if s.Metadata != nil && len(s.Metadata.Tasks) > 0 {
		tasks = s.Metadata.Tasks
	}

	total := len(tasks)
	if s.Metadata != nil && s.Metadata.TaskCount != nil {
		total = *s.Metadata.TaskCount
	}

	if total == 0 && len(tasks) == 0 {
		return Summary{Text: "No open tasks found.", Severity: SeverityInfo}
	}

	now := f.now()
	overdue := 0
	var overdueTitles []string
	for _, task := range tasks {
		due, ok := parseDueDate(task.DueDate)
		if !ok {
			continue
		}
		if due.Before(now) {
			overdue++
			if len(overdueTitles) < maxOverdueTitles && task.Title != "" {
				overdueTitles = append(overdueTitles, task.Title)
			}
		}
	}

	parts := []string{fmt.Sprintf("Tasks summary: %d open tasks", total)}
	parts = append(parts, fmt.Sprintf("%d overdue", overdue))
	if len(overdueTitles) > 0 {
		parts = append(parts, "Overdue: "+strings.Join(overdueTitles, ", "))
	}
	return Summary{Text: strings.Join(parts, "; ") + ".", Severity: SeveritySuccess}
}

var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDueDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (f *Formatter) describeGeneric(raw RawValue) Summary {
	switch val := raw.(type) {
	case nil, RawEmpty:
		return Summary{Severity: SeverityInfo}
	case RawError:
		if val.Message == "" {
			return Summary{Severity: SeverityInfo}
		}
		return Summary{Text: "Tool error: " + val.Message, Severity: SeverityError}
	case RawText:
		text := strings.TrimSpace(val.Text)
		if text == "" {
			return Summary{Severity: SeverityInfo}
		}
		return Summary{Text: truncate(text, maxTextSummary), Severity: SeverityInfo}
	case RawNumber:
		return Summary{Text: strconv.FormatFloat(val.Value, 'f', -1, 64), Severity: SeverityInfo}
	case RawBool:
		return Summary{Text: strconv.FormatBool(val.Value), Severity: SeverityInfo}
	case RawStructured:
		data := val.JSON
		if len(data) == 0 {
			data, _ = json.Marshal(val.Items)
		}
		return Summary{Text: truncate(string(data), maxJSONSummary), Severity: SeverityInfo}
	default:
		return Summary{Severity: SeverityInfo}
	}
}

// StorageExtras carries the optional fields FormatForStorage passes through.
type StorageExtras struct {
	Title    string
	Metadata map[string]interface{}
}

// FormatForStorage wraps Describe into the persisted summary shape.
func (f *Formatter) FormatForStorage(toolName string, raw RawValue, extras *StorageExtras) ToolResultSummary {
	summary := f.Describe(toolName, raw)

	out := ToolResultSummary{
		Raw:    raw,
		Status: summary.Severity,
	}
	if summary.Text != "" {
		text := summary.Text
		out.Summary = &text
	}
	if extras != nil {
		out.Title = extras.Title
		out.Metadata = extras.Metadata
	}
	return out
}

// ToolOutcome pairs a tool name with its raw output for aggregation.
type ToolOutcome struct {
	ToolName string
	Raw      RawValue
}

// Aggregate condenses the summaries of several tool outcomes into one line.
// If any outcome produced an error summary, only the last error is returned.
// Otherwise success summaries come first, then info summaries, duplicates
// removed, original order preserved. Returns "" when nothing summarized.
func (f *Formatter) Aggregate(outcomes []ToolOutcome) string {
	var lastError string
	var successes, infos []string
	seen := map[string]bool{}

	for _, outcome := range outcomes {
		summary := f.Describe(outcome.ToolName, outcome.Raw)
		if summary.Text == "" {
			continue
		}
		switch summary.Severity {
		case SeverityError:
			lastError = summary.Text
		case SeveritySuccess:
			if !seen[summary.Text] {
				seen[summary.Text] = true
				successes = append(successes, summary.Text)
			}
		case SeverityInfo:
			if !seen[summary.Text] {
				seen[summary.Text] = true
				infos = append(infos, summary.Text)
			}
		}
	}

	if lastError != "" {
		return lastError
	}
	return strings.Join(append(successes, infos...), " ")
}

// truncate clips s to max characters, not bytes, marking clipped text with
// an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
