package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid name", "my-project", false},
		{"valid with spaces", "my project", false},
		{"padded", "  api  ", false},
		{"empty string", "", true},
		{"only spaces", "   ", true},
		{"only tabs", "\t\t", true},
		{"too long", strings.Repeat("x", MaxNameLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Name(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "Name(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		})
	}
}

func TestTagName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"single word", "todo", false},
		{"padded", " fixme ", false},
		{"with hyphen", "tech-debt", false},
		{"empty string", "", true},
		{"inner space", "tech debt", true},
		{"inner tab", "tech\tdebt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TagName(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "TagName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		})
	}
}

func TestNameField(t *testing.T) {
	require.NoError(t, NameField("name", "api"))
	require.Error(t, NameField("name", ""))

	require.NoError(t, TagNameField("tag", "todo"))
	require.Error(t, TagNameField("tag", "two words"))
}
