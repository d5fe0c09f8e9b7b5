// Package schema provides helper functions for creating JSON Schema
// definitions for tool parameters.
//
// Example usage:
//
//	params := schema.CreateObjectSchema(map[string]*jsonschema.Schema{
//		"status":  schema.CreateStringSchemaEnum("Task status filter", []string{"open", "done"}),
//		"limit":   schema.CreateIntSchema("Maximum tasks to return", 20),
//		"overdue": schema.CreateBoolSchema("Only overdue tasks", false),
//	}, []string{"status"})
package schema
