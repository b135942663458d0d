package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextHook_Run(t *testing.T) {
	scanCtx := WithScanID(WithProjectID(context.Background(), "proj-1"), "scan-2")

	tests := []struct {
		name string
		ctx  context.Context
		want map[string]string
	}{
		{
			name: "scan in progress",
			ctx:  scanCtx,
			want: map[string]string{"project_id": "proj-1", "scan_id": "scan-2"},
		},
		{
			name: "resolve",
			ctx:  WithChangeSetID(WithProjectID(context.Background(), "proj-1"), "cs-3"),
			want: map[string]string{"project_id": "proj-1", "change_set_id": "cs-3"},
		},
		{
			name: "empty values are skipped",
			ctx:  WithScanID(context.Background(), ""),
			want: map[string]string{},
		},
		{
			name: "background",
			ctx:  context.Background(),
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf).Hook(ContextHook{})
			logger.Info().Ctx(tt.ctx).Msg("scan step")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("parse log line: %v", err)
			}

			for _, key := range []string{"project_id", "scan_id", "change_set_id"} {
				want, expected := tt.want[key]
				got, present := entry[key]
				switch {
				case expected && got != want:
					t.Errorf("%s = %v, want %q", key, got, want)
				case !expected && present:
					t.Errorf("%s = %v, want it absent", key, got)
				}
			}
		})
	}
}
