package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
	apperrors "sheetsync/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	t.Cleanup(c.Close)
	return c
}

func TestFetchDataset_SendsFormAndDecodes(t *testing.T) {
	var gotAction, gotSheet, gotContentType, gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		assert.NoError(t, r.ParseForm())
		gotAction = r.PostForm.Get("action")
		gotSheet = r.PostForm.Get("sheet")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"headers":["Full Name","Amount","Timestamp"],` +
			`"data":[["Alice",100,"2024-01-01T10:00:00"],["Bob","bad",null]]}`))
	})

	payload, err := c.FetchDataset(context.Background(), dataset.Donations)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "getData", gotAction)
	assert.Equal(t, "donate", gotSheet)

	assert.Equal(t, []string{"Full Name", "Amount", "Timestamp"}, payload.Headers)
	assert.Equal(t, [][]string{
		{"Alice", "100", "2024-01-01T10:00:00"},
		{"Bob", "bad", ""},
	}, payload.Rows)
}

func TestFetchDataset_MalformedBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html error page", `<html><body>Script error</body></html>`},
		{"missing headers", `{"data":[]}`},
		{"endpoint error", `{"error":"Sheet not found"}`},
		{"headers not array", `{"headers":"Full Name","data":[]}`},
		{"missing data", `{"headers":["A"]}`},
		{"row not array", `{"headers":["A"],"data":["x"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.FetchDataset(context.Background(), dataset.Contacts)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeMalformedResponse, apperrors.GetCode(err))
			assert.False(t, apperrors.IsRetryable(err))
		})
	}
}

func TestFetchDataset_EndpointErrorMessageSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Sheet not found"}`))
	})

	_, err := c.FetchDataset(context.Background(), dataset.Contacts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingHeaders))
	assert.Contains(t, err.Error(), "Sheet not found")
}

func TestFetchDataset_BadStatusIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := c.FetchDataset(context.Background(), dataset.Volunteers)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNetwork, apperrors.GetCode(err))
	assert.True(t, apperrors.IsRetryable(err))
	assert.Contains(t, err.Error(), "502")
}

func TestFetchDataset_TimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	defer c.Close()

	_, err := c.FetchDataset(context.Background(), dataset.Donations)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNetwork, apperrors.GetCode(err))
}

func TestFetchDataset_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url, Timeout: time.Second})
	defer c.Close()

	_, err := c.FetchDataset(context.Background(), dataset.Donations)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.NoError(t, rl.Wait(ctx))
	require.NoError(t, rl.Wait(ctx))
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)

	var disabled *RateLimiter
	assert.Nil(t, NewRateLimiter(0))
	assert.NoError(t, disabled.Wait(context.Background()))
	disabled.Stop()
}

func TestFetchDataset_RateLimitedContextIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"headers":[],"data":[]}`))
	})
	c.rateLimiter = NewRateLimiter(1)

	_, err := c.FetchDataset(context.Background(), dataset.Donations)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.FetchDataset(ctx, dataset.Donations)
	assert.Equal(t, apperrors.CodeNetwork, apperrors.GetCode(err))
}
