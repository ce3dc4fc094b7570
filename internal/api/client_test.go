package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nhle/microwins/internal/model"
)

func newTestClient(t *testing.T, token string, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(srv.URL, func() string { return token }, 5*time.Second)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, "tok-123", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	})

	var out struct{}
	if err := c.Do(context.Background(), http.MethodGet, "/auth/me", nil, &out); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-123")
	}
}

func TestClient_OmitsHeaderWithoutToken(t *testing.T) {
	var hadAuth bool
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		w.Write([]byte(`{}`))
	})

	var out struct{}
	if err := c.Do(context.Background(), http.MethodGet, "/auth/me", nil, &out); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if hadAuth {
		t.Error("Authorization header sent despite empty token")
	}
}

func TestClient_TokenReadPerCall(t *testing.T) {
	token := "first"
	var got []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, func() string { return token }, time.Second)

	var out struct{}
	if err := c.Do(context.Background(), http.MethodGet, "/x", nil, &out); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	token = "second"
	if err := c.Do(context.Background(), http.MethodGet, "/x", nil, &out); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if got[0] != "Bearer first" || got[1] != "Bearer second" {
		t.Errorf("tokens = %v, want latest value per call", got)
	}
}

func TestClient_ErrorDetailFromServer(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid email or password"}`))
	})

	err := c.Do(context.Background(), http.MethodPost, "/auth/login", map[string]string{}, nil)
	if err == nil {
		t.Fatal("expected error")
	}

	re, ok := err.(*RequestError)
	if !ok {
		t.Fatalf("err = %T, want *RequestError", err)
	}
	if re.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", re.Status)
	}
	if re.Error() != "Invalid email or password" {
		t.Errorf("Error() = %q, want server detail", re.Error())
	}
}

func TestClient_ErrorFallbackMessage(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>not json</html>"))
	})

	err := c.Do(context.Background(), http.MethodGet, "/tasks/1", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Request failed (502)" {
		t.Errorf("Error() = %q, want fallback", err.Error())
	}
}

func TestClient_UpdateStepStatusPath(t *testing.T) {
	var gotMethod, gotURL string
	c := newTestClient(t, "t", func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotURL = r.URL.String()
		json.NewEncoder(w).Encode(StepStatus{
			ID:             9,
			IsCompleted:    true,
			TaskCompleted:  true,
			StreakCount:    4,
			TotalCompleted: 11,
		})
	})

	status, err := c.UpdateStepStatus(context.Background(), 9, true)
	if err != nil {
		t.Fatalf("UpdateStepStatus failed: %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", gotMethod)
	}
	if gotURL != "/tasks/microwins/9?is_completed=true" {
		t.Errorf("url = %q", gotURL)
	}
	if !status.TaskCompleted || status.StreakCount != 4 || status.TotalCompleted != 11 {
		t.Errorf("status = %+v", status)
	}
}

func TestClient_OpenStreamSuccess(t *testing.T) {
	c := newTestClient(t, "t", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.String() != "/tasks/decompose/stream?user_id=3" {
			t.Errorf("url = %q", r.URL.String())
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["instruction"] != "learn go" {
			t.Errorf("instruction = %q", body["instruction"])
		}
		w.Write([]byte("data: {\"latency_ms\":5}\n"))
	})

	rc, err := c.DecomposeStream(context.Background(), 3, "learn go")
	if err != nil {
		t.Fatalf("DecomposeStream failed: %v", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if string(raw) != "data: {\"latency_ms\":5}\n" {
		t.Errorf("stream body = %q", raw)
	}
}

func TestClient_OpenStreamErrorContract(t *testing.T) {
	c := newTestClient(t, "t", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"quota exceeded"}`))
	})

	_, err := c.DecomposeStream(context.Background(), 1, "goal")
	if err == nil {
		t.Fatal("expected error")
	}
	re, ok := err.(*RequestError)
	if !ok || re.Error() != "quota exceeded" {
		t.Errorf("err = %v, want RequestError with server detail", err)
	}
}

func TestClient_DeleteTaskNoBody(t *testing.T) {
	c := newTestClient(t, "t", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/tasks/5" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeleteTask(context.Background(), 5); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
}

func TestIsAuthStatus(t *testing.T) {
	if !IsAuthStatus(&RequestError{Status: 401}) {
		t.Error("401 should be an auth status")
	}
	if IsAuthStatus(&RequestError{Status: 500}) {
		t.Error("500 should not be an auth status")
	}
	if IsAuthStatus(io.EOF) {
		t.Error("non-RequestError should not match")
	}
}

func TestClient_UpdateProfileRoundTrip(t *testing.T) {
	c := newTestClient(t, "t", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/users/profile/7" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding patch body: %v", err)
		}
		if body["full_name"] != "Ann B" {
			t.Errorf("full_name = %v, want Ann B", body["full_name"])
		}
		if _, ok := body["granularity_level"]; ok {
			t.Error("nil patch fields must be omitted from the body")
		}

		w.Write([]byte(`{"id": 7, "email": "a@b.c", "full_name": "Ann B"}`))
	})

	name := "Ann B"
	user, err := c.UpdateProfile(context.Background(), 7, model.ProfilePatch{FullName: &name})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if user.FullName != "Ann B" {
		t.Errorf("FullName = %q, want server-confirmed value", user.FullName)
	}
}
