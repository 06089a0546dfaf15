package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Douala Roofing & Sons", want: "douala-roofing-sons"},
		{in: "  BTP   Cameroun  ", want: "btp-cameroun"},
		{in: "Plomberie-Express", want: "plomberie-express"},
		{in: "123 Construction!!!", want: "123-construction"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in))
	}
}

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2026, 2, 1, 8, 30, 0, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.Equal(t, now.UTC().Format(time.RFC3339), formatted)
}
