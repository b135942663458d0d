// Package mcpserver exposes the scan and review workflow as MCP tools so an
// agent can scan a repository, inspect the pending change-set and resolve it.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/logging"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/task"
	"github.com/colonyops/tasksync/internal/tasksync"
)

const instructions = `tasksync tracks TODO-style annotations in GitHub repositories.

Workflow:
  1. list_projects to find a project id.
  2. scan_project to fetch the repository and produce a pending change-set.
  3. get_change_set to review each result (NEW, UPDATE, MOVE, SAME, DELETE).
  4. resolve_changes to approve or reject it. Approving applies the listed
     actions: NEW takes CREATE or IGNORE; SAME, MOVE and UPDATE take CONFIRM
     or UNLINK; DELETE takes UNLINK, DELETE or COMPLETE.`

// Server answers MCP tool calls for one identity.
type Server struct {
	app      *tasksync.App
	identity string
	log      zerolog.Logger
}

// New creates a Server acting as identity.
func New(app *tasksync.App, identity string, log zerolog.Logger) *Server {
	return &Server{
		app:      app,
		identity: identity,
		log:      logging.Component(log, "mcp"),
	}
}

// MCP builds the protocol server with every tool registered.
func (s *Server) MCP(version string) *server.MCPServer {
	m := server.NewMCPServer(
		"tasksync",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	m.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List the projects owned by the current identity."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.listProjects)

	m.AddTool(mcp.NewTool("scan_project",
		mcp.WithDescription("Scan a project's repository and create a pending change-set. Returns every progress message and the final outcome."),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("project to scan")),
	), s.scanProject)

	m.AddTool(mcp.NewTool("list_changes",
		mcp.WithDescription("List change-sets, newest first, with result counts by type."),
		mcp.WithString("project_id", mcp.Description("limit to one project")),
		mcp.WithString("status", mcp.Description("filter by status"),
			mcp.Enum(string(scan.StatusPending), string(scan.StatusAccepted), string(scan.StatusRejected), string(scan.StatusIgnored))),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.listChanges)

	m.AddTool(mcp.NewTool("get_change_set",
		mcp.WithDescription("Get a change-set with its diff results and the actions each result allows."),
		mcp.WithString("change_set_id", mcp.Required()),
		mcp.WithBoolean("include_same", mcp.Description("include SAME results (default false)")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.getChangeSet)

	m.AddTool(mcp.NewTool("resolve_changes",
		mcp.WithDescription("Approve or reject a pending change-set. When approved, actions maps an action name to the result ids it applies to; unlisted results are ignored."),
		mcp.WithString("project_id", mcp.Required()),
		mcp.WithString("change_set_id", mcp.Required()),
		mcp.WithBoolean("approved", mcp.Required()),
		mcp.WithObject("actions", mcp.Description(`e.g. {"CREATE": ["id1"], "CONFIRM": ["id2"]}`)),
		mcp.WithObject("titles", mcp.Description("task titles for CREATE, keyed by result id")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.resolveChanges)

	m.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks, optionally for one project."),
		mcp.WithString("project_id"),
		mcp.WithBoolean("include_deleted"),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.listTasks)

	return m
}

// toolError reports a failure as a tool result so the agent can read it.
func (s *Server) toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	kind := tasksync.Kind(err)
	s.log.Warn().Ctx(ctx).Err(err).Str("tool", tool).Str("kind", string(kind)).Msg("tool failed")
	return mcp.NewToolResultErrorf("%s: %s", kind, err)
}

func structured(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultStructured(v, string(raw)), nil
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.app.Projects.List(ctx, s.identity)
	if err != nil {
		return s.toolError(ctx, "list_projects", err), nil
	}
	return structured(map[string]any{"projects": projects})
}

type scanResult struct {
	Messages    []string     `json:"messages"`
	Failed      bool         `json:"failed"`
	Kind        string       `json:"kind,omitempty"`
	ChangeSetID string       `json:"change_set_id,omitempty"`
	Summary     diff.Summary `json:"summary,omitempty"`
}

func (s *Server) scanProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var out scanResult
	last, err := s.app.Scans.Scan(ctx, projectID, s.identity, func(p tasksync.Progress) {
		out.Messages = append(out.Messages, p.Message)
	})
	out.ChangeSetID = last.ChangeSetID
	out.Summary = last.Summary
	if err != nil {
		out.Failed = true
		out.Kind = string(tasksync.Kind(err))
		res, merr := structured(out)
		if merr != nil {
			return nil, merr
		}
		res.IsError = true
		return res, nil
	}
	return structured(out)
}

func (s *Server) listChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := scan.Status(strings.ToUpper(req.GetString("status", "")))
	if status != "" && !status.IsValid() {
		return mcp.NewToolResultErrorf("bad_request: unknown status %q", status), nil
	}

	list, err := s.app.Changes.List(ctx, s.identity, req.GetString("project_id", ""), status)
	if err != nil {
		return s.toolError(ctx, "list_changes", err), nil
	}

	type row struct {
		ID        string       `json:"id"`
		ProjectID string       `json:"project_id"`
		Status    scan.Status  `json:"status"`
		Summary   diff.Summary `json:"summary"`
		CreatedAt string       `json:"created_at"`
	}
	rows := make([]row, len(list))
	for i, cs := range list {
		rows[i] = row{
			ID:        cs.ID,
			ProjectID: cs.ProjectID,
			Status:    cs.Status,
			Summary:   cs.Summary(),
			CreatedAt: cs.CreatedAt.Format(time.RFC3339),
		}
	}
	return structured(map[string]any{"change_sets": rows})
}

type resultView struct {
	diff.Result
	Allowed []task.Action `json:"allowed"`
}

func (s *Server) getChangeSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("change_set_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cs, err := s.app.Changes.Get(ctx, s.identity, id)
	if err != nil {
		return s.toolError(ctx, "get_change_set", err), nil
	}

	includeSame := req.GetBool("include_same", false)
	results := make([]resultView, 0, len(cs.Results))
	for _, r := range cs.Results {
		if r.Type == diff.TypeSame && !includeSame {
			continue
		}
		results = append(results, resultView{Result: r, Allowed: task.AllowedActions(r.Type)})
	}

	return structured(map[string]any{
		"id":         cs.ID,
		"project_id": cs.ProjectID,
		"status":     cs.Status,
		"summary":    cs.Summary(),
		"results":    results,
	})
}

type resolveArgs struct {
	ProjectID   string              `json:"project_id"`
	ChangeSetID string              `json:"change_set_id"`
	Approved    bool                `json:"approved"`
	Actions     map[string][]string `json:"actions"`
	Titles      map[string]string   `json:"titles"`
}

func (s *Server) resolveChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args resolveArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultErrorf("bad_request: %s", err), nil
	}

	actions := make(map[task.Action][]string, len(args.Actions))
	for name, ids := range args.Actions {
		actions[task.Action(name)] = ids
	}

	res, err := s.app.Resolver.Resolve(ctx, s.identity, tasksync.ResolveRequest{
		ProjectID:   args.ProjectID,
		ChangeSetID: args.ChangeSetID,
		Actions:     actions,
		Titles:      args.Titles,
		Approved:    args.Approved,
	})
	if err != nil {
		return s.toolError(ctx, "resolve_changes", err), nil
	}
	return structured(res)
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := s.app.Tasks.List(ctx, s.identity, req.GetString("project_id", ""), req.GetBool("include_deleted", false))
	if err != nil {
		return s.toolError(ctx, "list_tasks", err), nil
	}
	return structured(map[string]any{"tasks": tasks})
}
