package usecase

import (
	"strings"

	"tourism-chat/internal/domain"
)

const historyHeader = "Conversation History:"

// assistantCue marks where the model's continuation begins.
const assistantCue = "assistant:"

// instructionBlock is identical for every request.
var instructionBlock = strings.Join([]string{
	"You are a helpful assistant that only answers questions about tourism in Indonesia.",
	"If the user asks for recommendations for the best tourist attractions, provide a list of exactly 10 locations.",
	"Answer in Indonesian as the main language unless the user asks for a different language.",
	"If the user explicitly asks for a different language, provide the answer in that language.",
}, " ")

// Compose builds the model input from the fixed instructions and the full
// history. history is expected to already end with the user turn for
// newUserText; if it does not, that turn is added so the prompt always closes
// on the current question.
func Compose(history domain.Conversation, newUserText string) string {
	turns := history
	if n := len(turns); n == 0 || turns[n-1] != domain.UserTurn(newUserText) {
		turns = append(turns[:n:n], domain.UserTurn(newUserText))
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, string(t.Role)+": "+t.Text)
	}

	var b strings.Builder
	b.WriteString(instructionBlock)
	b.WriteString("\n\n")
	b.WriteString(historyHeader)
	b.WriteString("\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	b.WriteString(assistantCue)
	return b.String()
}

// Window keeps the most recent max turns. max <= 0 keeps the whole history.
func Window(history domain.Conversation, max int) domain.Conversation {
	if max <= 0 || len(history) <= max {
		return history
	}
	return history[len(history)-max:]
}
