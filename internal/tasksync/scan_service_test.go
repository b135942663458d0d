package tasksync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasksync/internal/core/diff"
	"github.com/colonyops/tasksync/internal/core/eventbus"
	"github.com/colonyops/tasksync/internal/core/project"
	"github.com/colonyops/tasksync/internal/core/scan"
	"github.com/colonyops/tasksync/internal/core/tags"
	"github.com/colonyops/tasksync/internal/data/stores"
	"github.com/colonyops/tasksync/internal/github"
)

const repoURL = "https://github.com/acme/widgets"

var successSteps = []string{
	"starting",
	"loading config",
	"scanning repo",
	"saving scan",
	"finding existing scan",
	"running diff",
	"saving update",
	"done",
}

func TestScanService_NoRepoURL(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.project(t, "")

	got := env.collect(t, p.ID, alice)

	require.Len(t, got, 2)
	assert.Equal(t, StepStarting, got[0].Step)
	assert.Equal(t, "error: project not linked to repository", got[1].Message)
	assert.Equal(t, KindBadRequest, got[1].Kind)
}

func TestScanService_AccessDenied(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.project(t, repoURL)

	tests := []struct {
		name      string
		projectID string
		identity  string
	}{
		{name: "unknown project", projectID: "nope", identity: alice},
		{name: "foreign identity", projectID: p.ID, identity: "mallory"},
		{name: "empty identity", projectID: p.ID, identity: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := env.collect(t, tt.projectID, tt.identity)
			assert.Equal(t, []string{"starting", "error: project not found or access denied"}, messages(got))
			assert.Equal(t, KindNotFound, got[1].Kind)
		})
	}
}

func TestScanService_FirstScan(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"src/app.go": "package app\n// TODO: wire config\n// FIXME: leaks\n",
	})
	p := env.project(t, repoURL)
	ctx := context.Background()

	got := env.collect(t, p.ID, alice)
	require.Equal(t, successSteps, messages(got))

	done := got[len(got)-1]
	require.NotEmpty(t, done.ChangeSetID)
	assert.Equal(t, 2, done.Summary[diff.TypeNew])

	cs, err := env.app.Changes.Get(ctx, alice, done.ChangeSetID)
	require.NoError(t, err)
	assert.Equal(t, scan.StatusPending, cs.Status)
	assert.Empty(t, cs.OldSnapshotID, "no accepted baseline yet")
	require.Len(t, cs.Results, 2)
	for _, r := range cs.Results {
		assert.Equal(t, diff.TypeNew, r.Type)
		assert.Nil(t, r.Data.Old)
	}

	after, err := env.app.Projects.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ScanIdle, after.ScanStatus)

	env.bus.AssertPublished(t, eventbus.EventScanCompleted)
	env.bus.AssertPublished(t, eventbus.EventChangeSetCreated)
}

func TestScanService_SupersedesPending(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a.go": "// TODO: one\n"})
	p := env.project(t, repoURL)
	ctx := context.Background()

	first := env.collect(t, p.ID, alice)
	second := env.collect(t, p.ID, alice)
	require.Equal(t, successSteps, messages(first))
	require.Equal(t, successSteps, messages(second))

	pending, err := env.app.Changes.List(ctx, alice, p.ID, scan.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second[len(second)-1].ChangeSetID, pending[0].ID)

	old, err := env.app.Changes.Get(ctx, alice, first[len(first)-1].ChangeSetID)
	require.NoError(t, err)
	assert.Equal(t, scan.StatusIgnored, old.Status)
	assert.NotNil(t, old.ResolvedAt)
}

func TestScanService_DiffsAgainstAcceptedSnapshot(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"a.go": "// TODO: keep me\n// TODO: drop me\n",
	})
	p := env.project(t, repoURL)
	ctx := context.Background()

	first := env.collect(t, p.ID, alice)
	csID := first[len(first)-1].ChangeSetID

	_, err := env.app.Resolver.Resolve(ctx, alice, ResolveRequest{
		ProjectID:   p.ID,
		ChangeSetID: csID,
		Approved:    true,
	})
	require.NoError(t, err)

	env.provider.Set("a.go", "// TODO: keep me\n")
	env.provider.Set("b.go", "\n\n// TODO: brand new\n")

	second := env.collect(t, p.ID, alice)
	require.Equal(t, successSteps, messages(second))

	cs, err := env.app.Changes.Get(ctx, alice, second[len(second)-1].ChangeSetID)
	require.NoError(t, err)
	assert.NotEmpty(t, cs.OldSnapshotID)

	sum := cs.Summary()
	assert.Equal(t, 1, sum[diff.TypeSame])
	assert.Equal(t, 1, sum[diff.TypeNew])
	assert.Equal(t, 1, sum[diff.TypeDelete])
}

func TestScanService_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, env *testEnv, p project.Project)
		want    []string
		kind    ErrorKind
		scanned bool
	}{
		{
			name: "rate limited",
			setup: func(t *testing.T, env *testEnv, _ project.Project) {
				env.provider.TreeErr = &github.Error{Kind: github.KindRateLimited, Status: 403, RetryAfter: time.Minute}
			},
			want: []string{"starting", "loading config", "scanning repo", "error: scan failed - rate limited by github, retry after 1m0s"},
			kind: KindRateLimited,
		},
		{
			name: "api error",
			setup: func(t *testing.T, env *testEnv, _ project.Project) {
				env.provider.TreeErr = &github.Error{Kind: github.KindAPI, Status: 404, Message: "Not Found"}
			},
			want: []string{"starting", "loading config", "scanning repo", "error: scan failed - github api error (404): Not Found"},
			kind: KindAPI,
		},
		{
			name: "network error",
			setup: func(t *testing.T, env *testEnv, _ project.Project) {
				env.provider.TreeErr = &github.Error{Kind: github.KindAPI, Message: "connection refused"}
			},
			want: []string{"starting", "loading config", "scanning repo", "error: scan failed - github request failed: connection refused"},
			kind: KindAPI,
		},
		{
			name: "unparseable repo url",
			setup: func(t *testing.T, env *testEnv, p project.Project) {
				require.NoError(t, stores.NewProjectStore(env.app.DB).SetRepo(context.Background(), p.ID, "not a url", ""))
			},
			want: []string{"starting", "loading config", "error: could not parse repo url"},
			kind: KindBadRequest,
		},
		{
			name: "invalid project config",
			setup: func(t *testing.T, env *testEnv, p project.Project) {
				bad := project.Config{Tags: []tags.Matcher{{Name: "todo", Match: []string{""}}}}
				require.NoError(t, stores.NewProjectStore(env.app.DB).SetConfig(context.Background(), p.ID, bad))
			},
			want: []string{
				"starting",
				"loading config",
				"error: invalid configuration: tags[0] (todo): at least one non-empty match string is required",
			},
			kind: KindConfig,
		},
		{
			name: "scan already running",
			setup: func(t *testing.T, env *testEnv, p project.Project) {
				require.NoError(t, stores.NewProjectStore(env.app.DB).BeginScan(context.Background(), p.ID))
			},
			want: []string{"starting", "loading config", "error: scan already in progress"},
			kind: KindBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, map[string]string{"a.go": "// TODO: x\n"})
			p := env.project(t, repoURL)
			tt.setup(t, env, p)

			got := env.collect(t, p.ID, alice)
			assert.Equal(t, tt.want, messages(got))

			last := got[len(got)-1]
			assert.True(t, last.Failed())
			assert.Equal(t, tt.kind, last.Kind)

			list, err := env.app.Changes.List(context.Background(), alice, p.ID, "")
			require.NoError(t, err)
			assert.Empty(t, list, "no change-set after a failed scan")
		})
	}
}

func TestScanService_FailureResetsScanStatus(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a.go": "// TODO: x\n"})
	p := env.project(t, repoURL)
	env.provider.TreeErr = &github.Error{Kind: github.KindAPI, Status: 500, Message: "boom"}

	got := env.collect(t, p.ID, alice)
	require.True(t, got[len(got)-1].Failed())

	env.provider.TreeErr = nil
	got = env.collect(t, p.ID, alice)
	assert.Equal(t, successSteps, messages(got), "a failed scan does not leave the project locked")
}

func TestScanService_RecoversLockOfCrashedScan(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a.go": "// TODO: x\n"})
	p := env.project(t, repoURL)
	ctx := context.Background()

	// A scan that started long ago and never reached EndScan.
	_, err := env.app.DB.Conn().ExecContext(ctx,
		`UPDATE projects SET scan_status = 'scanning', scan_started_at = ? WHERE id = ?`,
		time.Now().Add(-2*stores.DefaultScanLease).UnixNano(), p.ID)
	require.NoError(t, err)

	got := env.collect(t, p.ID, alice)
	assert.Equal(t, successSteps, messages(got))

	after, err := env.app.Projects.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ScanIdle, after.ScanStatus)
}

func TestScanService_Abandoned(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a.go": "// TODO: x\n"})
	p := env.project(t, repoURL)
	ctx := context.Background()

	var seen []string
	for prog := range env.app.Scans.Run(ctx, p.ID, alice) {
		seen = append(seen, prog.Message)
		if prog.Step == StepScanningRepo {
			break
		}
	}
	assert.Equal(t, []string{"starting", "loading config", "scanning repo"}, seen)

	after, err := env.app.Projects.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ScanIdle, after.ScanStatus)

	list, err := env.app.Changes.List(ctx, alice, p.ID, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestScanService_Scan(t *testing.T) {
	env := newTestEnv(t, map[string]string{"a.go": "// TODO: x\n"})
	p := env.project(t, repoURL)
	ctx := context.Background()

	var streamed []Step
	last, err := env.app.Scans.Scan(ctx, p.ID, alice, func(prog Progress) {
		streamed = append(streamed, prog.Step)
	})
	require.NoError(t, err)
	assert.Equal(t, StepDone, last.Step)
	assert.Len(t, streamed, len(successSteps))

	last, err = env.app.Scans.Scan(ctx, p.ID, "mallory", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.True(t, last.Failed())
}
