package messaging

import (
	"encoding/json"
	"testing"

	"easyconnect-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkItemValidate(t *testing.T) {
	t.Run("Valid create item", func(t *testing.T) {
		item := WorkItem{
			Kind: WorkItemKindCreate,
			Request: &models.DispatchRequest{
				UserID:  uuid.New(),
				Titre:   "Titre",
				Message: "Message",
			},
		}
		assert.NoError(t, item.Validate())
	})

	t.Run("Create item without request is invalid", func(t *testing.T) {
		item := WorkItem{Kind: WorkItemKindCreate}
		assert.Error(t, item.Validate())
	})

	t.Run("Create item without user id is invalid", func(t *testing.T) {
		item := WorkItem{
			Kind:    WorkItemKindCreate,
			Request: &models.DispatchRequest{Titre: "Titre", Message: "Message"},
		}
		assert.Error(t, item.Validate())
	})

	t.Run("Valid effects item", func(t *testing.T) {
		item := WorkItem{Kind: WorkItemKindEffects, NotificationID: uuid.New()}
		assert.NoError(t, item.Validate())
	})

	t.Run("Effects item without notification id is invalid", func(t *testing.T) {
		item := WorkItem{Kind: WorkItemKindEffects}
		assert.Error(t, item.Validate())
	})

	t.Run("Unknown kind is invalid", func(t *testing.T) {
		item := WorkItem{Kind: "reindex"}
		assert.Error(t, item.Validate())
	})
}

func TestWorkItemRoundTrip(t *testing.T) {
	// Sync не сериализуется: работа из очереди всегда выполняется асинхронно
	item := WorkItem{
		Kind: WorkItemKindCreate,
		Request: &models.DispatchRequest{
			UserID:  uuid.New(),
			Titre:   "Titre",
			Message: "Message",
			Sync:    true,
		},
	}

	body, err := json.Marshal(item)
	require.NoError(t, err)

	var decoded WorkItem
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.NotNil(t, decoded.Request)
	assert.Equal(t, item.Request.UserID, decoded.Request.UserID)
	assert.False(t, decoded.Request.Sync)
}
