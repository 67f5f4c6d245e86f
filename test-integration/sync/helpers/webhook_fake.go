package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// FakeWebhook records incoming-webhook messages.
type FakeWebhook struct {
	server *httptest.Server

	mu       sync.Mutex
	messages []string
	failOn   []string
}

// NewFakeWebhook starts the fake
func NewFakeWebhook() *FakeWebhook {
	f := &FakeWebhook{}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

// URL is the endpoint to configure as notify.webhook_url
func (f *FakeWebhook) URL() string {
	return f.server.URL + "/services/T000/B000/XXXX"
}

// Close stops the server
func (f *FakeWebhook) Close() {
	f.server.Close()
}

// FailWhenContains makes the webhook answer 500 for messages containing s
func (f *FakeWebhook) FailWhenContains(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn = append(f.failOn, s)
}

// Messages returns the accepted messages in arrival order
func (f *FakeWebhook) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func (f *FakeWebhook) handle(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if r.Method != http.MethodPost || json.NewDecoder(r.Body).Decode(&payload) != nil {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.failOn {
		if strings.Contains(payload.Text, s) {
			http.Error(w, "internal_error", http.StatusInternalServerError)
			return
		}
	}
	f.messages = append(f.messages, payload.Text)
	_, _ = w.Write([]byte("ok"))
}
