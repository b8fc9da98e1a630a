package analysis

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/brandpulse/pkg/models"
)

// TopicOccurrence is one topic extracted from one user message.
type TopicOccurrence struct {
	Topic          string
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	IsAnswered     bool
}

// QuestionOccurrence is a user message recognised as a question, with the
// topics it references.
type QuestionOccurrence struct {
	Question       string
	Topics         []string
	ConversationID uuid.UUID
	MessageID      uuid.UUID
	IsAnswered     bool
}

// Occurrences walks every user message of every conversation and records its
// topics and, when it is a question, the question itself. A message counts as
// answered when the next message in the same conversation is from the assistant.
func (l *Lexicon) Occurrences(convs []models.Conversation) ([]TopicOccurrence, []QuestionOccurrence) {
	var topics []TopicOccurrence
	var questions []QuestionOccurrence

	for _, conv := range convs {
		msgs := orderedMessages(conv.Messages)
		for i, msg := range msgs {
			if msg.Role != models.RoleUser {
				continue
			}
			answered := i+1 < len(msgs) && msgs[i+1].Role == models.RoleAssistant

			extracted := l.ExtractTopics(msg.Content)
			for _, t := range extracted {
				topics = append(topics, TopicOccurrence{
					Topic:          t,
					ConversationID: conv.ID,
					MessageID:      msg.ID,
					IsAnswered:     answered,
				})
			}

			if l.IsQuestion(msg.Content) {
				questions = append(questions, QuestionOccurrence{
					Question:       strings.TrimSpace(msg.Content),
					Topics:         extracted,
					ConversationID: conv.ID,
					MessageID:      msg.ID,
					IsAnswered:     answered,
				})
			}
		}
	}
	return topics, questions
}

// orderedMessages returns msgs sorted by Position without touching the input.
func orderedMessages(msgs []models.Message) []models.Message {
	if sort.SliceIsSorted(msgs, func(i, j int) bool { return msgs[i].Position < msgs[j].Position }) {
		return msgs
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// userMessages yields the content of every user message in corpus order.
func userMessages(convs []models.Conversation, fn func(conv models.Conversation, msg models.Message) bool) {
	for _, conv := range convs {
		for _, msg := range orderedMessages(conv.Messages) {
			if msg.Role != models.RoleUser {
				continue
			}
			if !fn(conv, msg) {
				return
			}
		}
	}
}
