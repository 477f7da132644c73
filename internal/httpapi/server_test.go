package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"pollchat/internal/core"
	"pollchat/internal/filter"
)

func newTestServer(t *testing.T, banned ...string) *httptest.Server {
	t.Helper()
	svc := core.NewService(core.NewRegistry(100), filter.New(banned), core.SystemClock(), core.NewStamper(0))
	api := New(svc, nil, Options{})
	ts := httptest.NewServer(api.Echo())
	t.Cleanup(ts.Close)
	return ts
}

func postForm(t *testing.T, ts *httptest.Server, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := http.PostForm(ts.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getMessages(t *testing.T, ts *httptest.Server, room string) messagesResponse {
	t.Helper()
	resp, err := http.Get(ts.URL + "/messages?room=" + url.QueryEscape(room))
	if err != nil {
		t.Fatalf("GET /messages: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /messages, got %d", resp.StatusCode)
	}
	var out messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	return out
}

func TestCreateJoinSendListFlow(t *testing.T) {
	ts := newTestServer(t)

	if resp := postForm(t, ts, "/create-room", url.Values{"name": {"Lobby"}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("create-room: %d", resp.StatusCode)
	}
	if resp := postForm(t, ts, "/join", url.Values{"room": {"Lobby"}, "user": {"alice"}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("join: %d", resp.StatusCode)
	}
	if resp := postForm(t, ts, "/send", url.Values{"room": {"Lobby"}, "user": {"alice"}, "text": {"hello"}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("send: %d", resp.StatusCode)
	}

	out := getMessages(t, ts, "Lobby")
	if len(out.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d: %#v", len(out.Messages), out.Messages)
	}
	if out.Messages[2].Author != "alice" || out.Messages[2].Text != "hello" {
		t.Fatalf("unexpected final message %#v", out.Messages[2])
	}
	if len(out.Users) != 1 || out.Users[0] != "alice" {
		t.Fatalf("expected users [alice], got %v", out.Users)
	}
}

func TestCreateRoomDuplicateConflicts(t *testing.T) {
	ts := newTestServer(t)

	if resp := postForm(t, ts, "/create-room", url.Values{"name": {"X"}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("first create: %d", resp.StatusCode)
	}
	if resp := postForm(t, ts, "/create-room", url.Values{"name": {"X"}}); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate create, got %d", resp.StatusCode)
	}
}

func TestValidationFailuresReturn400(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		path string
		form url.Values
	}{
		{"/create-room", url.Values{}},
		{"/join", url.Values{"room": {"Lobby"}}},
		{"/leave", url.Values{"user": {"alice"}}},
		{"/send", url.Values{"room": {"Lobby"}, "user": {"alice"}}},
		{"/typing", url.Values{"user": {"alice"}}},
	}
	for _, tc := range cases {
		if resp := postForm(t, ts, tc.path, tc.form); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.path, resp.StatusCode)
		}
	}
}

func TestSendPolicyViolationForbidden(t *testing.T) {
	ts := newTestServer(t, "badword")

	resp := postForm(t, ts, "/send", url.Values{
		"room": {"Lobby"},
		"user": {"mallory"},
		"text": {"b4d w0rd incoming"},
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	out := getMessages(t, ts, "Lobby")
	last := out.Messages[len(out.Messages)-1]
	if !last.System {
		t.Fatalf("expected a moderation system notice, got %#v", last)
	}
}

func TestTypingMergedIntoMessages(t *testing.T) {
	ts := newTestServer(t)

	postForm(t, ts, "/send", url.Values{"room": {"Lobby"}, "user": {"alice"}, "text": {"hi"}})
	if resp := postForm(t, ts, "/typing", url.Values{"room": {"Lobby"}, "user": {"alice"}, "typing": {"true"}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("typing: %d", resp.StatusCode)
	}

	out := getMessages(t, ts, "Lobby")
	last := out.Messages[len(out.Messages)-1]
	if !last.Typing {
		t.Fatalf("expected typing flag on alice's message, got %#v", last)
	}
}

func TestTypingUnknownRoom404(t *testing.T) {
	ts := newTestServer(t)
	resp := postForm(t, ts, "/typing", url.Values{"room": {"ghost"}, "user": {"alice"}, "typing": {"true"}})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMessagesUnknownRoomIsEmpty(t *testing.T) {
	ts := newTestServer(t)
	out := getMessages(t, ts, "nowhere")
	if len(out.Messages) != 0 || len(out.Users) != 0 {
		t.Fatalf("expected empty payload, got %#v", out)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	postForm(t, ts, "/create-room", url.Values{"name": {"Lobby"}})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.Rooms != 1 {
		t.Fatalf("unexpected health payload: %#v", health)
	}
}

func TestUploadWithoutPipelineUnavailable(t *testing.T) {
	ts := newTestServer(t)
	resp := postForm(t, ts, "/upload", url.Values{"room": {"Lobby"}, "user": {"alice"}})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a pipeline, got %d", resp.StatusCode)
	}
}
