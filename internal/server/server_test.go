package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeResponder struct {
	calls      int
	lastMsg    string
	lastID     string
	lastName   string
	reply      string
}

func (f *fakeResponder) GenerateResponse(_ context.Context, message, identity, displayName string) string {
	f.calls++
	f.lastMsg = message
	f.lastID = identity
	f.lastName = displayName
	return f.reply
}

type fakeSender struct {
	lastTo   string
	lastText string
	err      error
}

func (f *fakeSender) SendText(_ context.Context, to, text string) error {
	f.lastTo = to
	f.lastText = text
	return f.err
}

func newTestServer() (*Server, *fakeResponder, *fakeSender) {
	responder := &fakeResponder{reply: "assistant reply"}
	sender := &fakeSender{}
	return New(responder, sender, "secret-token", 0, true), responder, sender
}

func TestWebhook_DisabledChannelNotRouted(t *testing.T) {
	responder := &fakeResponder{reply: "assistant reply"}
	s := New(responder, &fakeSender{}, "secret-token", 0, false)

	w := postJSON(s, "/webhook", webhookText)
	if w.Code != http.StatusNotFound {
		t.Errorf("POST /webhook status = %d, want 404", w.Code)
	}
	if responder.calls != 0 {
		t.Error("disabled channel must not reach the responder")
	}

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=1", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /webhook status = %d, want 404", rec.Code)
	}

	// The direct endpoint stays up regardless of the channel.
	if w := postJSON(s, "/chat", `{"message":"hi"}`); w.Code != http.StatusOK {
		t.Errorf("POST /chat status = %d", w.Code)
	}
}

func TestVerify_Accepted(t *testing.T) {
	s, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "12345" {
		t.Errorf("challenge not echoed: %q", w.Body.String())
	}
}

func TestVerify_WrongToken(t *testing.T) {
	s, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestVerify_MissingParams(t *testing.T) {
	s, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

const webhookText = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "changes": [{
      "value": {
        "contacts": [{"wa_id": "61400000000", "profile": {"name": "Alice"}}],
        "messages": [{"id": "wamid.1", "from": "61400000000", "type": "text", "text": {"body": "hello"}}]
      }
    }]
  }]
}`

func postJSON(s *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestWebhook_TextMessage(t *testing.T) {
	s, responder, sender := newTestServer()
	w := postJSON(s, "/webhook", webhookText)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if responder.lastMsg != "hello" || responder.lastID != "61400000000" || responder.lastName != "Alice" {
		t.Errorf("responder got msg=%q id=%q name=%q", responder.lastMsg, responder.lastID, responder.lastName)
	}
	if sender.lastTo != "61400000000" || sender.lastText != "assistant reply" {
		t.Errorf("sender got to=%q text=%q", sender.lastTo, sender.lastText)
	}
}

func TestWebhook_DuplicateDeliveryDropped(t *testing.T) {
	s, responder, _ := newTestServer()

	postJSON(s, "/webhook", webhookText)
	w := postJSON(s, "/webhook", webhookText)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if responder.calls != 1 {
		t.Errorf("responder invoked %d times, want 1", responder.calls)
	}
}

func TestWebhook_StatusCallbackAcknowledged(t *testing.T) {
	s, responder, _ := newTestServer()
	body := `{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.1","status":"read"}]}}]}]}`
	w := postJSON(s, "/webhook", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if responder.calls != 0 {
		t.Error("status callback must not generate a reply")
	}
}

func TestWebhook_MalformedBody(t *testing.T) {
	s, _, _ := newTestServer()
	w := postJSON(s, "/webhook", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestChat_WithCustomerID(t *testing.T) {
	s, responder, _ := newTestServer()
	w := postJSON(s, "/chat", `{"message":"what courses?","name":"Bob","customer_id":"cust-7"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if responder.lastID != "cust-7" || responder.lastName != "Bob" {
		t.Errorf("responder got id=%q name=%q", responder.lastID, responder.lastName)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not json: %v", err)
	}
	if resp["response"] != "assistant reply" {
		t.Errorf("response = %q", resp["response"])
	}
}

func TestChat_FallsBackToClientIP(t *testing.T) {
	s, responder, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(`{"message":"hi"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:51000"
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if responder.lastID != "203.0.113.9" {
		t.Errorf("identity = %q, want client IP", responder.lastID)
	}
}

func TestChat_MissingMessage(t *testing.T) {
	s, _, _ := newTestServer()
	w := postJSON(s, "/chat", `{"name":"Bob"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
