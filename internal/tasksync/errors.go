package tasksync

import (
	"errors"
	"fmt"

	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/task"
	"github.com/colonyops/tasksync/internal/github"
)

// ErrorKind is the caller-facing classification of a failure.
type ErrorKind string

const (
	KindNotFound    ErrorKind = "not_found"
	KindRateLimited ErrorKind = "rate_limited"
	KindAPI         ErrorKind = "api_error"
	KindParse       ErrorKind = "parse_error"
	KindConfig      ErrorKind = "config_error"
	KindBadRequest  ErrorKind = "bad_request"
	KindInternal    ErrorKind = "internal"
)

var (
	// ErrAccessDenied is returned when the identity does not own the project.
	// It classifies as not_found so callers cannot probe for foreign projects.
	ErrAccessDenied = errors.New("project not found or access denied")
	// ErrBadRequest marks malformed caller input.
	ErrBadRequest = errors.New("bad request")
	// ErrConfig marks an unusable tag or ignore configuration.
	ErrConfig = errors.New("invalid configuration")
)

// Kind classifies err. A nil error has no kind.
func Kind(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var ghErr *github.Error
	if errors.As(err, &ghErr) {
		switch ghErr.Kind {
		case github.KindRateLimited:
			return KindRateLimited
		case github.KindParse:
			return KindParse
		default:
			return KindAPI
		}
	}

	switch {
	case errors.Is(err, ErrAccessDenied),
		errors.Is(err, project.ErrNotFound),
		errors.Is(err, scan.ErrChangeSetNotFound),
		errors.Is(err, scan.ErrSnapshotNotFound),
		errors.Is(err, task.ErrNotFound),
		errors.Is(err, task.ErrAnnotationNotFound):
		return KindNotFound
	case errors.Is(err, ErrConfig), errors.Is(err, project.ErrInvalidConfig):
		return KindConfig
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, task.ErrInvalidAction),
		errors.Is(err, task.ErrTagExists),
		errors.Is(err, project.ErrScanInFlight):
		return KindBadRequest
	}

	return KindInternal
}

// Phase names the resolver step an item failed in.
type Phase string

const (
	PhaseValidate Phase = "validate"
	PhaseUpsert   Phase = "upsert"
	PhaseDelete   Phase = "delete"
	PhaseAction   Phase = "action-application"
	PhaseTagLink  Phase = "tag-link"
)

// ResolveError reports which item and step of a resolve failed.
type ResolveError struct {
	Phase  Phase
	ItemID string
	Err    error
}

func (e *ResolveError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("resolve %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("resolve %s %s: %v", e.Phase, e.ItemID, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
