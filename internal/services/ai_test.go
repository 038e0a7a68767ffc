package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeOpenAI(t *testing.T, content string) *AIService {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
			},
		})
	}))
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return NewAIServiceWithConfig(cfg)
}

func TestAIService_GenerateTasksFromText(t *testing.T) {
	svc := newFakeOpenAI(t, "```json\n[{\"title\":\"Send invoice\",\"description\":\"to ACME\",\"assigned_to\":\"bob\",\"due_date\":\"2030-01-02T09:00:00Z\"}]\n```")

	tasks, err := svc.GenerateTasksFromText(context.Background(), "bob sends the ACME invoice by Jan 2")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Send invoice", tasks[0].Title)
	assert.Equal(t, "bob", tasks[0].AssignedTo)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, 2030, tasks[0].DueDate.Year())
}

func TestAIService_InvalidJSON(t *testing.T) {
	svc := newFakeOpenAI(t, "I could not find any tasks.")

	_, err := svc.GenerateTasksFromText(context.Background(), "hello")
	assert.ErrorContains(t, err, "failed to parse AI response")
}
