package logging

import "context"

type contextKey string

const (
	projectIDKey   contextKey = "project_id"
	scanIDKey      contextKey = "scan_id"
	changeSetIDKey contextKey = "change_set_id"
)

// WithProjectID adds a project ID to the context.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectIDKey, projectID)
}

// WithScanID adds a scan run ID to the context.
func WithScanID(ctx context.Context, scanID string) context.Context {
	return context.WithValue(ctx, scanIDKey, scanID)
}

// WithChangeSetID adds a change-set ID to the context.
func WithChangeSetID(ctx context.Context, changeSetID string) context.Context {
	return context.WithValue(ctx, changeSetIDKey, changeSetID)
}

// GetProjectID retrieves the project ID from the context.
// Returns empty string if not present.
func GetProjectID(ctx context.Context) string {
	return stringValue(ctx, projectIDKey)
}

// GetScanID retrieves the scan run ID from the context.
// Returns empty string if not present.
func GetScanID(ctx context.Context) string {
	return stringValue(ctx, scanIDKey)
}

// GetChangeSetID retrieves the change-set ID from the context.
// Returns empty string if not present.
func GetChangeSetID(ctx context.Context) string {
	return stringValue(ctx, changeSetIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if id, ok := ctx.Value(key).(string); ok {
		return id
	}
	return ""
}
