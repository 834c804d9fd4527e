package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"avnotify/config"
	"avnotify/queue"
	"avnotify/types"
)

type fakeLedger struct {
	msgs []types.Message
}

func (f *fakeLedger) Messages() []types.Message { return f.msgs }

func newFixture(t *testing.T) (*Service, *queue.Queue[types.Event], *fakeLedger) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"pickup.html", "status.html", "emergency.html"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("<html>"+name+"</html>"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	events := queue.MustNew[types.Event](10)
	ledger := &fakeLedger{}
	svc := New(config.WebConfig{Listen: "127.0.0.1:0", HTMLDir: dir}, events, ledger, zerolog.Nop())
	return svc, events, ledger
}

func TestIndexServesRequestedPage(t *testing.T) {
	svc, _, _ := newFixture(t)

	cases := []struct {
		query string
		want  string
	}{
		{"?page=pickup", "pickup.html"},
		{"?page=status", "status.html"},
		{"?page=emergency", "emergency.html"},
		{"", "pickup.html"},
		{"?page=bogus", "pickup.html"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/"+c.query, nil)
		rec := httptest.NewRecorder()
		svc.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET /%s: status %d", c.query, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), c.want) {
			t.Errorf("GET /%s: body %q, want page %s", c.query, rec.Body.String(), c.want)
		}
	}
}

func TestIndexMissingFile(t *testing.T) {
	events := queue.MustNew[types.Event](10)
	svc := New(config.WebConfig{Listen: "127.0.0.1:0", HTMLDir: t.TempDir()}, events, &fakeLedger{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func postForm(t *testing.T, svc *Service, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)
	return rec
}

func takeEvent(t *testing.T, q *queue.Queue[types.Event]) types.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := q.Get(ctx)
	if err != nil {
		t.Fatalf("no event queued: %v", err)
	}
	return ev
}

func TestSubmitPickup(t *testing.T) {
	svc, events, _ := newFixture(t)

	rec := postForm(t, svc, url.Values{"content": {"Lena"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/?page=status" {
		t.Errorf("redirect to %q", loc)
	}

	ev := takeEvent(t, events)
	if ev.Type != types.EventPickup || ev.Value != "Lena" {
		t.Errorf("event = %+v", ev)
	}
}

func TestSubmitEmergency(t *testing.T) {
	svc, events, _ := newFixture(t)

	postForm(t, svc, url.Values{"emergency_type": {"Staff"}})
	ev := takeEvent(t, events)
	if ev.Type != types.EventEmergency {
		t.Errorf("event = %+v", ev)
	}

	// Anything but "staff" is dropped.
	postForm(t, svc, url.Values{"emergency_type": {"fire"}})
	if !events.Empty() {
		t.Error("unexpected event for unknown emergency type")
	}
}

func TestSubmitParking(t *testing.T) {
	svc, events, _ := newFixture(t)

	postForm(t, svc, url.Values{"parking": {"B-XY 123"}})
	ev := takeEvent(t, events)
	if ev.Type != types.EventParking || ev.Value != "B-XY 123" {
		t.Errorf("event = %+v", ev)
	}
}

func TestSubmitEmptyFormRedirectsWithoutEvent(t *testing.T) {
	svc, events, _ := newFixture(t)

	rec := postForm(t, svc, url.Values{})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if !events.Empty() {
		t.Error("empty form queued an event")
	}
}

func TestMessagesReturnsLedger(t *testing.T) {
	svc, _, ledger := newFixture(t)
	ledger.msgs = []types.Message{
		{Kind: types.KindPickup, Value: "Lena", State: types.StateWait, Timestamp: "01.02.2026 10:30"},
	}

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec := httptest.NewRecorder()
	svc.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got struct {
		Messages []types.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Value != "Lena" {
		t.Errorf("messages = %+v", got.Messages)
	}
}
