package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrustedDevice_IsActive(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"future expiry", now.Add(24 * time.Hour), true},
		{"just expired", now.Add(-time.Second), false},
		{"expires exactly now", now, false},
		{"long expired", now.Add(-30 * 24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &TrustedDevice{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, d.IsActive(now))
		})
	}
}
