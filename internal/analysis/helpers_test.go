package analysis

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// --- corpus builders ---

func userMsg(content string, at time.Time) models.Message {
	return models.Message{ID: uuid.New(), Role: models.RoleUser, Content: content, Timestamp: at}
}

func assistantMsg(content string, at time.Time) models.Message {
	return models.Message{ID: uuid.New(), Role: models.RoleAssistant, Content: content, Timestamp: at}
}

func newConv(msgs ...models.Message) models.Conversation {
	c := models.Conversation{ID: uuid.New(), BrandID: uuid.Nil}
	for i := range msgs {
		msgs[i].ConversationID = c.ID
		msgs[i].Position = i
	}
	c.Messages = msgs
	if len(msgs) > 0 {
		c.StartedAt = msgs[0].Timestamp
	}
	return c
}

var (
	testStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
)

func testWindow() Window {
	return Window{Start: testStart, End: testEnd}
}

func day(d int) time.Time {
	return time.Date(2023, 1, d, 12, 0, 0, 0, time.UTC)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
