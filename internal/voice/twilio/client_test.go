package twilio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sabcare_backend/internal/voice"
	"sabcare_backend/platform/logger"
)

type stubConfig struct{}

func (stubConfig) GetTwilioAccountSID() string { return "AC123" }
func (stubConfig) GetTwilioAuthToken() string  { return "secret" }
func (stubConfig) GetTwilioFromNumber() string { return "+31100000000" }
func (stubConfig) GetServerBaseURL() string    { return "https://care.example.com" }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(stubConfig{}, logger.New("test"))
	client.baseURL = srv.URL
	return client, srv
}

func TestPlaceCallReturnsSID(t *testing.T) {
	var gotPath, gotTo string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if user, pass, ok := r.BasicAuth(); !ok || user != "AC123" || pass != "secret" {
			t.Error("request should carry basic auth credentials")
		}
		_ = r.ParseForm()
		gotTo = r.PostForm.Get("To")
		w.Write([]byte(`{"sid":"CA900","status":"queued"}`))
	})

	ref, err := client.PlaceCall(context.Background(), voice.CallRequest{
		To:      "+31612345678",
		Message: "Hello",
		EventID: "evt-1",
	})
	if err != nil {
		t.Fatalf("PlaceCall() error = %v", err)
	}
	if ref != "CA900" {
		t.Errorf("PlaceCall() ref = %q, want CA900", ref)
	}
	if gotPath != "/Accounts/AC123/Calls.json" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotTo != "+31612345678" {
		t.Errorf("To = %q, want the patient number", gotTo)
	}
}

func TestSendSMSReturnsSID(t *testing.T) {
	var gotPath, gotBody, gotFrom string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotBody = r.PostForm.Get("Body")
		gotFrom = r.PostForm.Get("From")
		w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
	})

	sid, err := client.SendSMS(context.Background(), "+31699999999", "Call placement needs attention")
	if err != nil {
		t.Fatalf("SendSMS() error = %v", err)
	}
	if sid != "SM42" {
		t.Errorf("SendSMS() sid = %q, want SM42", sid)
	}
	if gotPath != "/Accounts/AC123/Messages.json" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotBody != "Call placement needs attention" {
		t.Errorf("Body = %q", gotBody)
	}
	if gotFrom != "+31100000000" {
		t.Errorf("From = %q, want the configured number", gotFrom)
	}
}

func TestSendSMSClassifiesErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad credentials","code":20003}`, voice.ErrAuth},
		{"rate limited", http.StatusTooManyRequests, `{"message":"too many requests"}`, voice.ErrTransient},
		{"server error", http.StatusInternalServerError, ``, voice.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.SendSMS(context.Background(), "+31699999999", "alert")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SendSMS() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNilClientRejectsWithAuthError(t *testing.T) {
	var client *Client
	if _, err := client.PlaceCall(context.Background(), voice.CallRequest{To: "+31612345678"}); !errors.Is(err, voice.ErrAuth) {
		t.Errorf("PlaceCall() on nil client error = %v, want ErrAuth", err)
	}
	if _, err := client.SendSMS(context.Background(), "+31699999999", "alert"); !errors.Is(err, voice.ErrAuth) {
		t.Errorf("SendSMS() on nil client error = %v, want ErrAuth", err)
	}
}
