package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		require.Equal(t, http.MethodPost, request.Method)
		require.Equal(t, "/classify", request.URL.Path)

		var body struct {
			Image string `json:"image"`
		}
		require.NoError(t, json.NewDecoder(request.Body).Decode(&body))
		require.Equal(t, "https://example.com/a.png", body.Image)

		response.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(response).Encode(map[string]string{"label": "banana"})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)

	label, err := client.Classify(context.Background(), "https://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "banana", label)
}

func TestClassifyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		response.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)

	_, err := client.Classify(context.Background(), "https://example.com/a.png")
	assert.Error(t, err)
}

func TestClassifyUnreachableService(t *testing.T) {
	client := New("http://127.0.0.1:1", 200*time.Millisecond)

	_, err := client.Classify(context.Background(), "https://example.com/a.png")
	assert.Error(t, err)
}
