package github

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/colonyops/tasksync/pkg/executil"
)

// ResolveToken picks the API token: an explicit token wins, then the
// GITHUB_TOKEN and GH_TOKEN environment variables, then `gh auth token`
// when useGh is set and the gh CLI is installed. An empty result with a nil
// error means anonymous access.
func ResolveToken(ctx context.Context, exec executil.Executor, token string, useGh bool) (string, error) {
	if token != "" {
		return token, nil
	}
	for _, env := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, nil
		}
	}
	if !useGh || exec == nil {
		return "", nil
	}
	if _, err := exec.LookPath("gh"); err != nil {
		return "", nil
	}

	out, err := exec.Run(ctx, "gh", "auth", "token")
	if err != nil {
		return "", fmt.Errorf("gh auth token: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
