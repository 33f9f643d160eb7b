package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/helmai/voice-server/internal/session"
)

func newTestInvoker(t *testing.T, client Client) (*Invoker, *ConnManager, *session.Store) {
	t.Helper()

	m := NewConnManager(testConnConfig(), func() (Client, error) {
		return client, nil
	}, nil)
	t.Cleanup(m.Close)

	if err := m.Reconnect(context.Background()); err != nil {
		t.Fatalf("Failed to install test client: %v", err)
	}

	sessions := session.NewStore()
	inv := NewInvoker(InvokerConfig{AgentID: "AGENT1", AliasID: "ALIAS1"}, m, sessions, nil)
	inv.sleep = func(time.Duration) {}
	return inv, m, sessions
}

func TestInvoker_EmptyPromptFailsWithoutRetry(t *testing.T) {
	client := &fakeClient{}
	inv, _, sessions := newTestInvoker(t, client)

	res := inv.Invoke(context.Background(), "   ", "U1")

	if res.Success {
		t.Error("Expected failure for empty prompt")
	}
	if res.RetryCount != 0 {
		t.Errorf("Expected zero retries, got %d", res.RetryCount)
	}
	if client.invokeCnt != 0 {
		t.Errorf("Expected no remote calls, got %d", client.invokeCnt)
	}
	if res.Error == "" {
		t.Error("Expected a configuration error message")
	}
	if _, ok := sessions.Get("U1"); ok {
		t.Error("Expected no session created for a rejected prompt")
	}
}

func TestInvoker_MissingAgentIDFailsFast(t *testing.T) {
	client := &fakeClient{}
	m := NewConnManager(testConnConfig(), func() (Client, error) { return client, nil }, nil)
	t.Cleanup(m.Close)
	if err := m.Reconnect(context.Background()); err != nil {
		t.Fatalf("Failed to install test client: %v", err)
	}

	inv := NewInvoker(InvokerConfig{}, m, session.NewStore(), nil)
	res := inv.Invoke(context.Background(), "hello", "U1")

	if res.Success {
		t.Error("Expected failure when agent id is missing")
	}
	if client.invokeCnt != 0 {
		t.Errorf("Expected no remote calls, got %d", client.invokeCnt)
	}
}

func TestInvoker_AggregatesChunks(t *testing.T) {
	client := &fakeClient{chunks: []Chunk{
		{Text: "Hello "},
		{Text: "there."},
	}}
	inv, _, _ := newTestInvoker(t, client)

	res := inv.Invoke(context.Background(), "hi", "U1")

	if !res.Success {
		t.Fatalf("Expected success, got error %q", res.Error)
	}
	if res.Response != "Hello there." {
		t.Errorf("Expected aggregated response, got %q", res.Response)
	}
	if res.MessageCount != 1 {
		t.Errorf("Expected message count 1, got %d", res.MessageCount)
	}
	if res.SessionID == "" {
		t.Error("Expected a session id")
	}
	if res.ConnectionStatus != "healthy" {
		t.Errorf("Expected healthy status, got %q", res.ConnectionStatus)
	}
}

func TestInvoker_SessionContinuityAcrossTurns(t *testing.T) {
	client := &fakeClient{chunks: []Chunk{{Text: "ok"}}}
	inv, _, _ := newTestInvoker(t, client)

	first := inv.Invoke(context.Background(), "turn one", "U1")
	second := inv.Invoke(context.Background(), "turn two", "U1")

	if first.SessionID != second.SessionID {
		t.Errorf("Expected same session across turns, got %q and %q",
			first.SessionID, second.SessionID)
	}
	if second.MessageCount != 2 {
		t.Errorf("Expected message count 2 on second turn, got %d", second.MessageCount)
	}
}

func TestInvoker_RetriesTransientThenSucceeds(t *testing.T) {
	client := &fakeClient{
		invokeErrs: []error{
			&StatusError{Code: 503},
			&StatusError{Code: 502},
			nil,
		},
		chunks: []Chunk{{Text: "recovered"}},
	}
	inv, _, _ := newTestInvoker(t, client)

	var delays []time.Duration
	inv.sleep = func(d time.Duration) { delays = append(delays, d) }

	res := inv.Invoke(context.Background(), "hi", "U1")

	if !res.Success {
		t.Fatalf("Expected eventual success, got error %q", res.Error)
	}
	if res.RetryCount != 2 {
		t.Errorf("Expected 2 retries, got %d", res.RetryCount)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("Expected %d backoff sleeps, got %v", len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("Sleep %d: expected %v, got %v", i, want[i], delays[i])
		}
	}
}

func TestInvoker_NonRetryableFailsImmediately(t *testing.T) {
	client := &fakeClient{
		invokeErrs: []error{&StatusError{Code: 400, Body: "agent not found"}},
	}
	inv, _, _ := newTestInvoker(t, client)

	res := inv.Invoke(context.Background(), "hi", "U1")

	if res.Success {
		t.Error("Expected failure for non-retryable error")
	}
	if res.RetryCount != 0 {
		t.Errorf("Expected zero retries, got %d", res.RetryCount)
	}
	if client.invokeCnt != 1 {
		t.Errorf("Expected exactly one remote call, got %d", client.invokeCnt)
	}
	if res.Error != "Agent not found. Check your AGENT_ID." {
		t.Errorf("Expected humanized config error, got %q", res.Error)
	}
}

func TestInvoker_RetriesExhausted(t *testing.T) {
	client := &fakeClient{
		invokeErrs: []error{
			&StatusError{Code: 503},
			&StatusError{Code: 503},
			&StatusError{Code: 503},
			&StatusError{Code: 503},
		},
	}
	inv, _, _ := newTestInvoker(t, client)

	res := inv.Invoke(context.Background(), "hi", "U1")

	if res.Success {
		t.Error("Expected failure after retries exhausted")
	}
	if res.RetryCount != 3 {
		t.Errorf("Expected 3 retries, got %d", res.RetryCount)
	}
	if client.invokeCnt != 4 {
		t.Errorf("Expected 4 total attempts, got %d", client.invokeCnt)
	}
	if res.Error != "Agent temporarily unavailable - automatically retrying" {
		t.Errorf("Expected transient-failure message, got %q", res.Error)
	}
	if res.ConnectionStatus != "healthy" {
		// Reconnect succeeds against the fake factory even though invokes
		// keep failing, so the connection itself reports healthy.
		t.Logf("connection status: %s", res.ConnectionStatus)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"http 500", &StatusError{Code: 500}, true},
		{"http 503", &StatusError{Code: 503}, true},
		{"http 400", &StatusError{Code: 400}, false},
		{"http 404", &StatusError{Code: 404}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"no client", errNoClient, true},
		{"plain", errors.New("boom"), false},
		{"timeout text", errors.New("request timeout while reading"), true},
	}

	for _, tc := range cases {
		if got := isRetryable(tc.err); got != tc.want {
			t.Errorf("%s: expected retryable=%v, got %v", tc.name, tc.want, got)
		}
	}
}
