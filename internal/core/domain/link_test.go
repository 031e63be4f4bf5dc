package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestNewUploadLink_Defaults(t *testing.T) {
	now := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

	link := NewUploadLink{OwnerID: " alice ", Name: " Tax docs "}.Link("tok", now)

	assert.Equal(t, "tok", link.Token)
	assert.Equal(t, "alice", link.OwnerID)
	assert.Equal(t, "Tax docs", link.Name)
	assert.Equal(t, DefaultMaxUploads, link.MaxUploads)
	assert.Zero(t, link.CurrentUploads)
	assert.True(t, link.Active)
	assert.Nil(t, link.ExpiresAt)
	assert.Equal(t, -1, link.Remaining())
	assert.NoError(t, link.Usable(now.AddDate(10, 0, 0)))
}

func TestNewUploadLink_Optionals(t *testing.T) {
	now := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

	link := NewUploadLink{OwnerID: "alice", Name: "n", MaxUploads: intPtr(2), ExpiresInDays: intPtr(7)}.Link("tok", now)

	assert.Equal(t, 2, link.MaxUploads)
	require.NotNil(t, link.ExpiresAt)
	assert.Equal(t, now.AddDate(0, 0, 7), *link.ExpiresAt)
	assert.Equal(t, 2, link.Remaining())
}

func TestNewUploadLink_Validate(t *testing.T) {
	tests := []struct {
		name string
		in   NewUploadLink
		want error
	}{
		{"ok", NewUploadLink{OwnerID: "a", Name: "n"}, nil},
		{"missing owner", NewUploadLink{OwnerID: " ", Name: "n"}, ErrOwnerRequired},
		{"missing name", NewUploadLink{OwnerID: "a", Name: "  "}, ErrInvalidInput},
		{"zero limit", NewUploadLink{OwnerID: "a", Name: "n", MaxUploads: intPtr(0)}, ErrInvalidInput},
		{"negative expiry", NewUploadLink{OwnerID: "a", Name: "n", ExpiresInDays: intPtr(-1)}, ErrInvalidInput},
		{"expiry too far", NewUploadLink{OwnerID: "a", Name: "n", ExpiresInDays: intPtr(MaxLinkExpiryDays + 1)}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUploadLink_Usable(t *testing.T) {
	now := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		link UploadLink
		want error
	}{
		{"open", UploadLink{Active: true}, nil},
		{"paused", UploadLink{Active: false}, ErrLinkInactive},
		{"expired", UploadLink{Active: true, ExpiresAt: &past}, ErrLinkExpired},
		{"expires exactly now", UploadLink{Active: true, ExpiresAt: &now}, ErrLinkExpired},
		{"not yet expired", UploadLink{Active: true, ExpiresAt: &future}, nil},
		{"below limit", UploadLink{Active: true, MaxUploads: 2, CurrentUploads: 1}, nil},
		{"at limit", UploadLink{Active: true, MaxUploads: 2, CurrentUploads: 2}, ErrLinkExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.link.Usable(now), tt.want)
		})
	}
}

func TestErrLinkNotFound_IsNotFound(t *testing.T) {
	assert.ErrorIs(t, ErrLinkNotFound, ErrNotFound)
}
