package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     map[string]any
		value   any
		want    bool
		message string
	}{
		{
			name:  "regex match",
			doc:   map[string]any{"regex": `^[a-z]+$`},
			value: "password",
			want:  true,
		},
		{
			name:    "regex miss with custom message",
			doc:     map[string]any{"regex": `^[a-z]+$`, "message": "lowercase only"},
			value:   "Password1",
			want:    false,
			message: "lowercase only",
		},
		{
			name:  "in list",
			doc:   map[string]any{"in": []any{"small", "medium", "large"}},
			value: "medium",
			want:  true,
		},
		{
			name:  "in list numeric coercion",
			doc:   map[string]any{"in": []any{1, 2, 3}},
			value: 2,
			want:  true,
		},
		{
			name:  "not in list",
			doc:   map[string]any{"in": []any{"small", "large"}},
			value: "medium",
			want:  false,
		},
		{
			name:  "protocol allowed",
			doc:   map[string]any{"protocols": []any{"http", "https"}},
			value: "https://example.com",
			want:  true,
		},
		{
			name:  "protocol rejected",
			doc:   map[string]any{"protocols": []any{"http", "https"}},
			value: "ftp://example.com",
			want:  false,
		},
		{
			name:  "protocol missing scheme",
			doc:   map[string]any{"protocols": []any{"http"}},
			value: "example.com",
			want:  false,
		},
		{
			name:  "less than",
			doc:   map[string]any{"less-than": 10},
			value: 4,
			want:  true,
		},
		{
			name:  "greater than string coercion",
			doc:   map[string]any{"greater-than": "2"},
			value: "8",
			want:  true,
		},
		{
			name:  "combined bounds",
			doc:   map[string]any{"greater-than-or-equal-to": 1, "less-than-or-equal-to": 4},
			value: 4,
			want:  true,
		},
		{
			name:  "combined bounds out of range",
			doc:   map[string]any{"greater-than-or-equal-to": 1, "less-than-or-equal-to": 4},
			value: 5,
			want:  false,
		},
		{
			name:  "static check",
			doc:   map[string]any{"check": false},
			value: "anything",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := FromDocument(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Test(tt.value))
			if tt.message != "" {
				assert.Equal(t, tt.message, c.Message())
			} else {
				assert.NotEmpty(t, c.Message())
			}
		})
	}
}

func TestFromDocumentRejectsUnknown(t *testing.T) {
	_, err := FromDocument(map[string]any{"frobnicate": true})
	assert.Error(t, err)
}

func TestFromDocumentRejectsBadRegex(t *testing.T) {
	_, err := FromDocument(map[string]any{"regex": "["})
	assert.Error(t, err)
}
