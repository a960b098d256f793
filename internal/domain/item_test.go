package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	t.Parallel()

	item, err := NewItem("https://example.com/post")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, item.ID)
	assert.Equal(t, "https://example.com/post", item.URL)
	assert.Equal(t, ItemStatusAwaitingCapture, item.Status)
	assert.Equal(t, 0, item.RetryCount)
	assert.Empty(t, item.ErrorMessage)
	assert.False(t, item.CreatedAt.IsZero())
}

func TestNewItemRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewItem("")
	assert.ErrorIs(t, err, ErrEmptyItemURL)
}

func TestItemValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Item {
		item, err := NewItem("https://example.com")
		require.NoError(t, err)
		return item
	}

	tests := []struct {
		name    string
		mutate  func(*Item)
		wantErr error
	}{
		{"valid item", func(*Item) {}, nil},
		{"empty ID", func(i *Item) { i.ID = uuid.Nil }, ErrEmptyItemID},
		{"empty URL", func(i *Item) { i.URL = "" }, ErrEmptyItemURL},
		{"unknown status", func(i *Item) { i.Status = "exploded" }, ErrInvalidItemStatus},
		{"negative retries", func(i *Item) { i.RetryCount = -1 }, ErrNegativeRetries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			item := valid()
			tt.mutate(item)

			err := item.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestItemUpdateStatus(t *testing.T) {
	t.Parallel()

	t.Run("rejects invalid status", func(t *testing.T) {
		t.Parallel()

		item, err := NewItem("https://example.com")
		require.NoError(t, err)

		assert.ErrorIs(t, item.UpdateStatus("bogus"), ErrInvalidItemStatus)
		assert.Equal(t, ItemStatusAwaitingCapture, item.Status)
	})

	t.Run("clears error message when leaving error state", func(t *testing.T) {
		t.Parallel()

		item, err := NewItem("https://example.com")
		require.NoError(t, err)
		item.Status = ItemStatusError
		item.ErrorMessage = "Failed after 3 attempts: timeout"

		require.NoError(t, item.UpdateStatus(ItemStatusAwaitingCapture))
		assert.Empty(t, item.ErrorMessage)
		assert.Equal(t, ItemStatusAwaitingCapture, item.Status)
	})

	t.Run("keeps error message while staying in error state", func(t *testing.T) {
		t.Parallel()

		item, err := NewItem("https://example.com")
		require.NoError(t, err)
		item.Status = ItemStatusError
		item.ErrorMessage = "Failed after 3 attempts: timeout"

		require.NoError(t, item.UpdateStatus(ItemStatusError))
		assert.Equal(t, "Failed after 3 attempts: timeout", item.ErrorMessage)
	})
}

func TestItemIsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status ItemStatus
		want   bool
	}{
		{ItemStatusAwaitingCapture, false},
		{ItemStatusCaptured, false},
		{ItemStatusAwaitingProcessing, false},
		{ItemStatusProcessing, false},
		{ItemStatusComplete, true},
		{ItemStatusError, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			item := &Item{Status: tt.status}
			assert.Equal(t, tt.want, item.IsTerminal())
		})
	}
}
