package clicksend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := &Client{
		Username:   "user",
		APIKey:     "key",
		SenderID:   "ReviewPing",
		APIBaseURL: srv.URL,
		HTTPClient: srv.Client(),
	}
	return c, srv
}

func TestSendSuccess(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sms/send" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if user, key, ok := r.BasicAuth(); !ok || user != "user" || key != "key" {
			t.Fatalf("missing basic auth")
		}

		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].To != "+61400803880" {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response_code":"SUCCESS","data":{"messages":[{"message_id":"D9D","status":"SUCCESS"}]}}`))
	})
	defer srv.Close()

	id, err := c.Send(context.Background(), "+61400803880", "Hi!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "D9D" {
		t.Fatalf("expected message id D9D, got %q", id)
	}
}

func TestSendClassifiesGatewayErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "insufficient credit",
			status:  http.StatusOK,
			body:    `{"response_code":"INSUFFICIENT_CREDIT","response_msg":"Insufficient credit"}`,
			wantErr: ErrInsufficientCredit,
		},
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"response_code":"UNAUTHORIZED"}`,
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "body too long",
			status:  http.StatusBadRequest,
			body:    `{"response_code":"BAD_REQUEST","response_msg":"Message body is too long"}`,
			wantErr: ErrMessageTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			defer srv.Close()

			_, err := c.Send(context.Background(), "+61400803880", "Hi!")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSendMissingCredentials(t *testing.T) {
	c := &Client{APIBaseURL: "http://unused.invalid"}
	if _, err := c.Send(context.Background(), "+61400803880", "Hi!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
