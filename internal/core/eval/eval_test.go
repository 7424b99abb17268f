package eval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePasswordDefaults(t *testing.T) {
	pw, err := GeneratePassword(PasswordOptions{})
	require.NoError(t, err)
	assert.Len(t, pw, DefaultPasswordLength)
	assert.Contains(t, letters, string(pw[0]))
	for i := 0; i < len(pw); i++ {
		assert.Contains(t, alphanumeric, string(pw[i]))
	}
}

func TestGeneratePasswordRequiredChars(t *testing.T) {
	pw, err := GeneratePassword(PasswordOptions{
		MinLength:     10,
		RequiredChars: []string{"@", "!"},
	})
	require.NoError(t, err)
	assert.Len(t, pw, 10)
	assert.Contains(t, pw, "@")
	assert.Contains(t, pw, "!")
}

func TestGeneratePasswordBounds(t *testing.T) {
	_, err := GeneratePassword(PasswordOptions{MinLength: 300})
	assert.Error(t, err)

	_, err = GeneratePassword(PasswordOptions{MinLength: 2, RequiredChars: []string{"a", "b", "c"}})
	assert.Error(t, err)
}

func TestIsExpression(t *testing.T) {
	assert.True(t, IsExpression("=generate_password()"))
	assert.True(t, IsExpression("=generate_uuid()"))
	assert.False(t, IsExpression("generate_password()"))
	assert.False(t, IsExpression("=generate_token()"))
	assert.False(t, IsExpression(42))
}

func TestEvaluateUUID(t *testing.T) {
	v, err := Evaluate("=generate_uuid()")
	require.NoError(t, err)
	s, ok := v.(string)
	require.True(t, ok)
	assert.Len(t, s, 32)
	assert.NotContains(t, s, "-")
}

func TestEvaluatePassword(t *testing.T) {
	v, err := Evaluate(`=generate_password(min_length=16, starts_with='abc', required_chars=['X', '9'])`)
	require.NoError(t, err)
	pw, ok := v.(string)
	require.True(t, ok)
	assert.Len(t, pw, 16)
	assert.Contains(t, "abc", string(pw[0]))
	assert.Contains(t, pw, "X")
	assert.Contains(t, pw, "9")
}

func TestEvaluateRejectsMalformed(t *testing.T) {
	_, err := Evaluate("=generate_password(length=8)")
	assert.Error(t, err)
	_, err = Evaluate("=generate_uuid(1)")
	assert.Error(t, err)
	_, err = Evaluate("=generate_password")
	assert.Error(t, err)
}

func TestCondition(t *testing.T) {
	scopes := Scopes{
		"inputs": map[string]any{
			"region": "fra1",
			"tls":    map[string]any{"enabled": true},
		},
	}

	tests := []struct {
		name string
		doc  any
		want bool
	}{
		{"literal true", true, true},
		{"literal false", false, false},
		{"uri truthy", "inputs://region", true},
		{"uri missing", "inputs://nope", false},
		{"exists", map[string]any{"exists": "inputs://tls/enabled"}, true},
		{"not-exists", map[string]any{"not-exists": "inputs://backup"}, true},
		{"if wraps", map[string]any{"if": "inputs://region"}, true},
		{"if-not inverts", map[string]any{"if-not": "inputs://region"}, false},
		{
			"or short circuits",
			map[string]any{"or": []any{"inputs://nope", "inputs://region"}},
			true,
		},
		{
			"and requires all",
			map[string]any{"and": []any{"inputs://region", "inputs://nope"}},
			false,
		},
		{"value lookup", map[string]any{"value": "inputs://tls/enabled"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Condition(tt.doc, scopes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditionRejectsUnknownKeys(t *testing.T) {
	_, err := Condition(map[string]any{"unless": true}, nil)
	assert.Error(t, err)
}

func TestLookupPath(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": "c"}}
	assert.Equal(t, "c", LookupPath(doc, "a/b"))
	assert.Nil(t, LookupPath(doc, "a/x"))
	assert.Nil(t, LookupPath(doc, strings.Repeat("a/", 3)+"b"))
}
