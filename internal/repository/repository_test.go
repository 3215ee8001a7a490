package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ChartSense/internal/domain/models"
	pkghttp "ChartSense/pkg/http"
)

func TestStaticTierDirectory(t *testing.T) {
	d, err := NewStaticTierDirectory(map[string]string{
		"user_pro":    "pro",
		"user_master": "MASTER",
		"user_odd":    "platinum",
	})
	if err != nil {
		t.Fatalf("NewStaticTierDirectory: %v", err)
	}
	defer d.Close()

	cases := map[string]models.Tier{
		"user_pro":    models.TierPro,
		"user_master": models.TierMaster,
		"user_odd":    models.TierFree,
		"unknown":     models.TierFree,
	}
	for user, want := range cases {
		got, err := d.Lookup(context.Background(), user)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", user, err)
		}
		if got != want {
			t.Fatalf("Lookup(%s) = %s, want %s", user, got, want)
		}
	}

	if err := d.SetTier(context.Background(), "unknown", models.TierPro); err != nil {
		t.Fatalf("SetTier: %v", err)
	}
	if got, _ := d.Lookup(context.Background(), "unknown"); got != models.TierPro {
		t.Fatalf("expected pro after SetTier, got %s", got)
	}
}

func TestStaticTierDirectoryKeepsEveryUser(t *testing.T) {
	d, err := NewStaticTierDirectory(map[string]string{"user_master": "master"})
	if err != nil {
		t.Fatalf("NewStaticTierDirectory: %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	for i := 0; i < 12000; i++ {
		if err := d.SetTier(ctx, fmt.Sprintf("user_%d", i), models.TierPro); err != nil {
			t.Fatalf("SetTier: %v", err)
		}
	}
	if got, _ := d.Lookup(ctx, "user_master"); got != models.TierMaster {
		t.Fatalf("user_master after 12000 tier changes = %s, want master", got)
	}
	if got, _ := d.Lookup(ctx, "user_0"); got != models.TierPro {
		t.Fatalf("user_0 = %s, want pro", got)
	}
}

func TestHTTPTierDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subscriptions/check" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("user_id") {
		case "user_master":
			_ = json.NewEncoder(w).Encode(models.TierCheckResponse{UserID: "user_master", Tier: models.TierMaster})
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := NewHTTPTierDirectory(pkghttp.NewClient(
		pkghttp.WithBaseURL(srv.URL),
		pkghttp.WithHeader("Authorization", "Bearer k"),
		pkghttp.WithTimeout(time.Second),
	))

	tier, err := d.Lookup(context.Background(), "user_master")
	if err != nil || tier != models.TierMaster {
		t.Fatalf("expected master, got %s (%v)", tier, err)
	}
	tier, err = d.Lookup(context.Background(), "nobody")
	if err != nil || tier != models.TierFree {
		t.Fatalf("expected free for 404, got %s (%v)", tier, err)
	}
	if _, err := d.Lookup(context.Background(), "broken"); err == nil {
		t.Fatalf("expected error for 500")
	}
}

func TestBuildFrameInsert(t *testing.T) {
	evs := []*models.FrameEvent{
		{ConnID: "a", Tier: models.TierPro, At: time.Unix(1, 0), SeriesLen: 10, Emitted: true},
		nil,
		{ConnID: ""},
		{ConnID: "b", Tier: models.TierFree, At: time.Unix(2, 0)},
	}
	q, args := buildFrameInsert("frame_events", evs)
	if !strings.HasPrefix(q, "INSERT INTO frame_events (ts, conn_id") {
		t.Fatalf("unexpected query %q", q)
	}
	if strings.Count(q, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)") != 2 {
		t.Fatalf("expected two value rows in %q", q)
	}
	if len(args) != 24 {
		t.Fatalf("expected 24 args, got %d", len(args))
	}
	if args[9] != uint8(1) || args[21] != uint8(0) {
		t.Fatalf("unexpected emitted flags %v %v", args[9], args[21])
	}

	if q, _ := buildFrameInsert("frame_events", []*models.FrameEvent{nil}); q != "" {
		t.Fatalf("expected empty query for no valid rows")
	}
}

func TestFrameEventsSchema(t *testing.T) {
	stmts := FrameEventsSchema("fe")
	if len(stmts) != 1 || !strings.Contains(stmts[0], "CREATE TABLE IF NOT EXISTS fe") {
		t.Fatalf("unexpected schema %v", stmts)
	}
}
