package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/korjavin/exambot/models"
)

type fakeSessions map[string]models.Session

func (f fakeSessions) Status(userID string) (models.Session, bool) {
	s, ok := f[userID]
	return s, ok
}

type fakeProfiles map[string]models.Profile

func (f fakeProfiles) Get(userID string) (models.Profile, bool) {
	p, ok := f[userID]
	return p, ok
}

func (f fakeProfiles) Model(userID string) string {
	if p, ok := f[userID]; ok && p.Model != "" {
		return p.Model
	}
	return "default-model"
}

func TestRoutes(t *testing.T) {
	h := NewHandler(
		fakeSessions{"7": {ID: "s1", State: models.StateAwaitingAnswer, Topic: "python"}},
		fakeProfiles{"7": {UserName: "alice", ExamAnswered: 3}, "8": {UserName: "bob", Model: "llama"}},
	)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	tests := []struct {
		name        string
		path        string
		wantCode    int
		wantModel   string
		wantSession bool
	}{
		{name: "health", path: "/healthz", wantCode: http.StatusOK},
		{name: "in exam", path: "/users/7", wantCode: http.StatusOK, wantModel: "default-model", wantSession: true},
		{name: "no exam", path: "/users/8", wantCode: http.StatusOK, wantModel: "llama"},
		{name: "unknown", path: "/users/9", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if tt.wantModel == "" {
				return
			}

			var got UserStatus
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.Model != tt.wantModel {
				t.Errorf("model = %q, want %q", got.Model, tt.wantModel)
			}
			if (got.Session != nil) != tt.wantSession {
				t.Errorf("session = %+v, want present=%v", got.Session, tt.wantSession)
			}
		})
	}
}
