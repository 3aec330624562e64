package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientGetTaskNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-scope", "", time.Second)
	_, err := c.GetTask(context.Background(), "task-1")
	if err != ErrNotFound {
		t.Fatalf("GetTask() error = %v, want ErrNotFound", err)
	}
}

func TestClientGetTaskSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("scope") != "test-scope" {
			t.Errorf("missing scope query param, got %q", r.URL.Query().Get("scope"))
		}
		json.NewEncoder(w).Encode(Task{ID: "task-1", Queue: QueueIncoming})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-scope", "", time.Second)
	task, err := c.GetTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if task.ID != "task-1" || task.Queue != QueueIncoming {
		t.Errorf("GetTask() = %+v, unexpected", task)
	}
}

func TestClientNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-scope", "", time.Second)
	_, err := c.GetTask(context.Background(), "task-1")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestClientAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-scope", "secret-key", time.Second)
	if err := c.RequeueTask(context.Background(), "task-1"); err != nil {
		t.Fatalf("RequeueTask() error = %v", err)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization header = %q, want %q", gotAuth, "Bearer secret-key")
	}
}

func TestClientClaimTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ClaimRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.AgentName != "implementer" {
			t.Errorf("ClaimRequest.AgentName = %q, want implementer", req.AgentName)
		}
		json.NewEncoder(w).Encode(Task{ID: "task-2", Queue: QueueClaimed})
	}))
	defer srv.Close()

	c := New(srv.URL, "scope", "", time.Second)
	task, err := c.ClaimTask(context.Background(), ClaimRequest{OrchestratorID: "orc-1", AgentName: "implementer"})
	if err != nil {
		t.Fatalf("ClaimTask() error = %v", err)
	}
	if task.Queue != QueueClaimed {
		t.Errorf("ClaimTask().Queue = %q, want %q", task.Queue, QueueClaimed)
	}
}
