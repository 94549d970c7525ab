package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, Token: "agent-token"})
	require.NoError(t, err)
	return server, client
}

func TestListAvailable(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/tasks", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer agent-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"tasks": []TaskSummary{
				{ID: "t1", Title: "Summarize logs", Reward: 2.5, Tags: []string{"text"}},
				{ID: "t2", Title: "Fix typo"},
			},
		})
	})

	tasks, err := client.ListAvailable(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, "Summarize logs", tasks[0].Title)
}

func TestClaim(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/tasks/t1/claim", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.Claim(context.Background(), "t1"))
}

func TestClaimConflict(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "already claimed", http.StatusConflict)
	})

	err := client.Claim(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestSubmit(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/tasks/t1/submissions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "the answer", body["content"])
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, client.Submit(context.Background(), "t1", "the answer"))
}

func TestHeartbeat(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/agents/heartbeat", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Heartbeat(context.Background()))
}

func TestAPIErrorCarriesStatusAndBody(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "task not found", http.StatusNotFound)
	})

	err := client.Claim(context.Background(), "ghost")
	require.Error(t, err)

	apierr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, http.StatusNotFound, apierr.StatusCode)
	assert.Contains(t, apierr.Body, "task not found")
	assert.False(t, IsConflict(err))
}

func TestAPIErrorRetryable(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 503}).Retryable())
	assert.True(t, (&APIError{StatusCode: 429}).Retryable())
	assert.False(t, (&APIError{StatusCode: 409}).Retryable(), "claim conflicts are final")
	assert.False(t, (&APIError{StatusCode: 404}).Retryable())
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestTaskSummaryPrompt(t *testing.T) {
	task := TaskSummary{
		Title:       "Summarize logs",
		Description: "Condense the attached log file.",
		Tags:        []string{"text", "logs"},
	}
	prompt := task.Prompt()
	assert.Contains(t, prompt, "Summarize logs")
	assert.Contains(t, prompt, "Condense the attached log file.")
	assert.Contains(t, prompt, "Tags: text, logs")

	bare := TaskSummary{Title: "Fix typo"}
	assert.Equal(t, "Fix typo", bare.Prompt())
}
