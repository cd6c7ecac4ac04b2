package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/yarda-ai/orchestrator/internal/core/domain"
)

func TestSubmitGeneration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generations/multi" {
			t.Errorf("expected path /generations/multi, got %s", r.URL.Path)
			http.Error(w, "invalid path", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Idempotency-Key") != "key-1" {
			t.Errorf("idempotency key = %q, want key-1", r.Header.Get("Idempotency-Key"))
		}

		var body struct {
			Address string            `json:"address"`
			Areas   []domain.AreaSpec `json:"areas"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body.Address != "12 Oak St" || len(body.Areas) != 2 {
			t.Errorf("unexpected body: %+v", body)
		}

		_ = json.NewEncoder(w).Encode(domain.GenerationRequest{
			ID:     "req-1",
			Status: domain.GenerationPending,
			Areas: []domain.AreaResult{
				{AreaID: "front_yard", Status: domain.AreaPending},
				{AreaID: "back_yard", Status: domain.AreaPending},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AuthToken: "tok-1"})
	req, err := client.SubmitGeneration(context.Background(), "12 Oak St", []domain.AreaSpec{
		{Area: "front_yard", Style: "modern"},
		{Area: "back_yard", Style: "cottage"},
	}, "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ID != "req-1" || len(req.Areas) != 2 {
		t.Errorf("unexpected response: %+v", req)
	}
}

func TestGetGeneration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generations/req-1" {
			t.Errorf("expected path /generations/req-1, got %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(domain.GenerationRequest{
			ID:     "req-1",
			Status: domain.GenerationProcessing,
			Areas: []domain.AreaResult{
				{AreaID: "front_yard", Status: domain.AreaCompleted, ImageURL: "https://img/1.png"},
				{AreaID: "back_yard", Status: domain.AreaProcessing},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	req, err := client.GetGeneration(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Areas[0].ImageURL != "https://img/1.png" {
		t.Errorf("unexpected area result: %+v", req.Areas[0])
	}
	if req.Complete() {
		t.Error("request with a processing area must not be complete")
	}
}

func TestGetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/credits/balance" {
			t.Errorf("expected path /v1/credits/balance, got %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(domain.UnifiedBalance{
			Trial:   domain.TrialBalance{Remaining: 2, Used: 1, TotalGranted: 3},
			Token:   domain.TokenBalance{Balance: 5},
			Holiday: domain.HolidayBalance{Credits: 1, CanGenerate: true},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	bal, err := client.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bal.Trial.Remaining != 2 || bal.Token.Balance != 5 || !bal.Holiday.CanGenerate {
		t.Errorf("unexpected balance: %+v", bal)
	}
}

func TestErrorCarriesStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"insufficient credits"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.SubmitGeneration(context.Background(), "12 Oak St", []domain.AreaSpec{{Area: "front_yard", Style: "modern"}}, "")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T: %v", err, err)
	}
	if apiErr.HTTPStatus() != http.StatusForbidden {
		t.Errorf("status = %d, want 403", apiErr.HTTPStatus())
	}
}

func TestUnauthorizedDebounce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var mu sync.Mutex
	triggered := 0
	client := NewClient(Config{
		BaseURL: server.URL,
		OnUnauthorized: func() {
			mu.Lock()
			triggered++
			mu.Unlock()
		},
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.GetBalance(context.Background())
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if triggered != 1 {
		t.Errorf("expected exactly one unauthorized trigger, got %d", triggered)
	}
}

func TestTransportErrorIsNotAPIError(t *testing.T) {
	// Port 1 is never listening.
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.GetBalance(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure should not be an *api.Error: %v", err)
	}
}
