package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/V4T54L/watch-tower-console/internal/domain"
	"github.com/V4T54L/watch-tower-console/internal/domain/mocks"
	"github.com/V4T54L/watch-tower-console/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewStore(&mocks.MockCredentialRepository{}, logger, nil)
	c, err := New(Config{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second}, store, logger, nil)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c, store
}

func signIn(t *testing.T, store *session.Store, token string) {
	t.Helper()
	store.SetToken(context.Background(), token)
	if !store.Verified(token, &domain.Identity{Username: "ada"}) {
		t.Fatal("failed to verify test session")
	}
}

func TestClientAttachesCredential(t *testing.T) {
	var gotAuth string
	c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))

	if _, err := c.Logs(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotAuth != "" {
		t.Errorf("expected no Authorization without a session, got %q", gotAuth)
	}

	signIn(t, store, "tok-1")
	if _, err := c.Logs(context.Background(), nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("expected bearer credential, got %q", gotAuth)
	}
}

func TestClientAuthorizationFailures(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantIs        error
		wantMessage   string
		wantSignedOut bool
	}{
		{
			name:          "401 Discards Session",
			status:        http.StatusUnauthorized,
			body:          `{"error":"token expired"}`,
			wantIs:        domain.ErrSessionInvalid,
			wantMessage:   "token expired",
			wantSignedOut: true,
		},
		{
			name:          "403 Keeps Session",
			status:        http.StatusForbidden,
			body:          `{"message":"project alpha not permitted"}`,
			wantIs:        domain.ErrForbidden,
			wantMessage:   "project alpha not permitted",
			wantSignedOut: false,
		},
		{
			name:          "500 Is Transient",
			status:        http.StatusInternalServerError,
			body:          "boom",
			wantIs:        domain.ErrTransient,
			wantMessage:   "boom",
			wantSignedOut: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			signIn(t, store, "tok-1")

			_, err := c.Logs(context.Background(), url.Values{"projectName": {"alpha"}})
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("expected %v, got %v", tt.wantIs, err)
			}
			if msg := Message(err); msg != tt.wantMessage {
				t.Errorf("message got %q, want %q", msg, tt.wantMessage)
			}

			snap := store.Snapshot()
			signedOut := snap.Status == domain.StatusUnauthenticated && snap.Token == ""
			if signedOut != tt.wantSignedOut {
				t.Errorf("signed out got %v, want %v (session %+v)", signedOut, tt.wantSignedOut, snap)
			}
		})
	}
}

func TestClientDistinctValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.FilterOptions
	}{
		{
			name: "Arrays",
			body: `{"projects":["alpha","beta"],"apps":["x"],"microservices":["y"],"levels":["INFO","ERROR"]}`,
			want: domain.FilterOptions{
				Projects:      []string{"alpha", "beta"},
				Apps:          []string{"x"},
				Microservices: []string{"y"},
				Levels:        []string{"INFO", "ERROR"},
			},
		},
		{
			name: "Keyed Mappings",
			body: `{"projects":{"b":"beta","a":"alpha"},"apps":{"1":"second","0":"first"},"levels":{"x":"WARN","2":"ERROR","0":"INFO"}}`,
			want: domain.FilterOptions{
				Projects:      []string{"beta", "alpha"},
				Apps:          []string{"first", "second"},
				Microservices: []string{},
				Levels:        []string{"INFO", "ERROR", "WARN"},
			},
		},
		{
			name: "Missing Dimensions",
			body: `{}`,
			want: domain.FilterOptions{
				Projects:      []string{},
				Apps:          []string{},
				Microservices: []string{},
				Levels:        []string{},
			},
		},
		{
			name: "Nulls And Numbers",
			body: `{"projects":null,"apps":[1,null,"z"],"microservices":[],"levels":["INFO"]}`,
			want: domain.FilterOptions{
				Projects:      []string{},
				Apps:          []string{"1", "z"},
				Microservices: []string{},
				Levels:        []string{"INFO"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/logs/distinctValues" {
					http.NotFound(w, r)
					return
				}
				w.Write([]byte(tt.body))
			}))

			got, err := c.DistinctValues(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClientLogs(t *testing.T) {
	t.Run("Decodes Records And Sends Params", func(t *testing.T) {
		var gotQuery url.Values
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			w.Write([]byte(`[
				{"id":"1","projectName":"alpha","appName":"x","microservice":"y","sourceApp":"s","level":"ERROR","timestamp":"2024-01-01T10:00:00Z","message":"boom"},
				{"id":2,"level":"INFO","timestamp":1704103200000,"message":"ok"}
			]`))
		}))

		params := url.Values{"projectName": {"alpha"}, "fromTs": {"2024-01-01T10:00:00"}}
		records, err := c.Logs(context.Background(), params)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !reflect.DeepEqual(gotQuery, params) {
			t.Errorf("query got %v, want %v", gotQuery, params)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].ProjectName != "alpha" || records[0].Message != "boom" {
			t.Errorf("unexpected first record: %+v", records[0])
		}
		if !records[0].Timestamp.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected timestamp: %v", records[0].Timestamp)
		}
		if records[1].ID != "2" {
			t.Errorf("expected numeric id to be rendered as text, got %q", records[1].ID)
		}
		if !records[1].Timestamp.Equal(time.UnixMilli(1704103200000)) {
			t.Errorf("unexpected epoch timestamp: %v", records[1].Timestamp)
		}
	})

	t.Run("Non Array Is Empty", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"unexpected":true}`))
		}))

		records, err := c.Logs(context.Background(), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if records == nil || len(records) != 0 {
			t.Errorf("expected an empty, non-nil result, got %#v", records)
		}
	})

	t.Run("Malformed JSON Is Transient", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id":`))
		}))

		if _, err := c.Logs(context.Background(), nil); !errors.Is(err, domain.ErrTransient) {
			t.Errorf("expected transient error, got %v", err)
		}
	})
}

func TestClientIdentityAndTokens(t *testing.T) {
	t.Run("Me As Object", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"name":"Ada Lovelace","username":"ada"}`))
		}))
		id, err := c.Me(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id.DisplayName() != "Ada Lovelace" {
			t.Errorf("unexpected display name %q", id.DisplayName())
		}
	})

	t.Run("Me As String", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`"ada"`))
		}))
		id, err := c.Me(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id.Username != "ada" {
			t.Errorf("expected username ada, got %+v", id)
		}
	})

	t.Run("Login Sends Credentials", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
				http.NotFound(w, r)
				return
			}
			if r.Header.Get("Content-Type") != "application/json" {
				http.Error(w, "bad content type", http.StatusBadRequest)
				return
			}
			w.Write([]byte(`{"token":"issued"}`))
		}))
		resp, err := c.Login(context.Background(), domain.LoginRequest{Username: "ada", Password: "pw"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.Token != "issued" {
			t.Errorf("unexpected token %q", resp.Token)
		}
	})

	t.Run("Register Without Token", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		resp, err := c.Register(context.Background(), domain.RegisterRequest{Username: "ada"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.Token != "" {
			t.Errorf("expected no token, got %q", resp.Token)
		}
	})

	t.Run("Register Error Message", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"username taken"}`))
		}))
		_, err := c.Register(context.Background(), domain.RegisterRequest{Username: "ada"})
		if Message(err) != "username taken" {
			t.Errorf("unexpected message %q", Message(err))
		}
	})
}

func TestClientCountByLevel(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.LevelCounts
	}{
		{name: "Object", body: `{"INFO":3,"ERROR":1}`, want: domain.LevelCounts{"INFO": 3, "ERROR": 1}},
		{name: "Aggregation Rows", body: `[{"_id":"WARN","count":2},{"level":"INFO","count":5}]`, want: domain.LevelCounts{"WARN": 2, "INFO": 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			got, err := c.CountByLevel(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
