package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor-client/internal/chat"
	"github.com/harborchat/harbor-client/internal/fault"
)

type capturedRequest struct {
	method string
	path   string
	body   string
}

func newTestServer(t *testing.T, status int, respBody string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		captured.body = string(buf[:n])
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client()), captured
}

func TestStarMessage(t *testing.T) {
	client, captured := newTestServer(t, http.StatusNoContent, "")

	err := client.StarMessage(context.Background(), "msg-1")

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, captured.method)
	assert.Equal(t, "/messages/msg-1/star", captured.path)
}

func TestUnstarMessage(t *testing.T) {
	client, captured := newTestServer(t, http.StatusNoContent, "")

	err := client.UnstarMessage(context.Background(), "msg-1")

	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, captured.method)
	assert.Equal(t, "/messages/msg-1/star", captured.path)
}

func TestUpdateAutoDeleteSendsBody(t *testing.T) {
	client, captured := newTestServer(t, http.StatusOK, "")

	err := client.UpdateAutoDelete(context.Background(), chat.AutoDeleteSettings{
		Enabled:  true,
		TTLHours: 48,
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, captured.method)
	assert.Equal(t, "/settings/auto-delete", captured.path)
	assert.JSONEq(t, `{"enabled":true,"ttl_hours":48}`, captured.body)
}

func TestReportMessageSendsReason(t *testing.T) {
	client, captured := newTestServer(t, http.StatusAccepted, "")

	err := client.ReportMessage(context.Background(), "msg-9", "spam")

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/messages/msg-9/report", captured.path)
	assert.JSONEq(t, `{"reason":"spam"}`, captured.body)
}

func TestMarkRead(t *testing.T) {
	client, captured := newTestServer(t, http.StatusOK, "")

	err := client.MarkRead(context.Background(), "general", "msg-42")

	require.NoError(t, err)
	assert.Equal(t, "/channels/general/read", captured.path)
	assert.JSONEq(t, `{"message_id":"msg-42"}`, captured.body)
}

func TestServerErrorBecomesHTTPFault(t *testing.T) {
	client, _ := newTestServer(t, http.StatusServiceUnavailable, `{"error":"maintenance window"}`)

	err := client.PinMessage(context.Background(), "msg-1")

	require.Error(t, err)
	var f *fault.Fault
	require.True(t, errors.As(err, &f))
	assert.Equal(t, fault.KindHTTP, f.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, f.Status)
	assert.Equal(t, "maintenance window", f.Message)
}

func TestClientErrorFallsBackToStatusText(t *testing.T) {
	client, _ := newTestServer(t, http.StatusForbidden, "")

	err := client.BlockUser(context.Background(), "user-3")

	require.Error(t, err)
	var f *fault.Fault
	require.True(t, errors.As(err, &f))
	assert.Equal(t, http.StatusForbidden, f.Status)
	assert.Contains(t, f.Message, "Forbidden")
}

func TestConnectionRefusedBecomesNetworkFault(t *testing.T) {
	// Port 1 is never listening.
	client := New("http://127.0.0.1:1", nil)

	err := client.UnblockUser(context.Background(), "user-3")

	require.Error(t, err)
	var f *fault.Fault
	require.True(t, errors.As(err, &f))
	assert.Equal(t, fault.KindNetwork, f.Kind)
}

func TestCanceledContextReturnsFault(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.StarMessage(ctx, "msg-1")

	require.Error(t, err)
	var f *fault.Fault
	require.True(t, errors.As(err, &f))
}
