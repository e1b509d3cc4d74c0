package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	assert.Equal(t, "a****@*******.com", SanitizedEmail("alice@example.com"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("not-an-email"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("a@b@c"))
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("code=123456"))
	assert.True(t, SanitizeQueryString("next=/admin/&token=abc"))
	assert.True(t, SanitizeQueryString("PASSWORD=hunter2"))
	assert.False(t, SanitizeQueryString("page=2&sort=name"))
	assert.False(t, SanitizeQueryString(""))
}

func TestRedactedAttr(t *testing.T) {
	attr := RedactedAttr("token", "abc123", "production")
	assert.Equal(t, "[REDACTED]", attr.Value.String())

	attr = RedactedAttr("token", "abc123", "development")
	assert.Equal(t, "abc123", attr.Value.String())
}
