package catalog

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

const searchPayload = `{
	"attributionText": "Data provided by Marvel. © 2024 MARVEL",
	"data": {
		"results": [
			{
				"id": 1009610,
				"name": "Spider-Man",
				"description": "Friendly neighborhood",
				"thumbnail": {"path": "http://img.example/spiderman", "extension": "jpg"},
				"comics": {"items": [{"name": "Amazing Fantasy #15"}, {"name": "ASM #1"}]}
			},
			{
				"id": 1009697,
				"name": "Spider-Woman",
				"description": "",
				"thumbnail": {"path": "", "extension": ""},
				"comics": {"items": []}
			}
		]
	}
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Options{
		BaseURL:    srv.URL,
		PublicKey:  "pub",
		PrivateKey: "priv",
	})
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSearchCharacters(t *testing.T) {
	var gotQuery map[string]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"nameStartsWith": q.Get("nameStartsWith"),
			"ts":             q.Get("ts"),
			"apikey":         q.Get("apikey"),
			"hash":           q.Get("hash"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchPayload))
	})

	res, err := c.SearchCharacters(context.Background(), "Spider")
	if err != nil {
		t.Fatalf("SearchCharacters: %v", err)
	}

	if gotQuery["nameStartsWith"] != "Spider" {
		t.Errorf("nameStartsWith = %q", gotQuery["nameStartsWith"])
	}
	if gotQuery["apikey"] != "pub" {
		t.Errorf("apikey = %q", gotQuery["apikey"])
	}
	sum := md5.Sum([]byte(gotQuery["ts"] + "priv" + "pub"))
	if gotQuery["hash"] != hex.EncodeToString(sum[:]) {
		t.Errorf("hash mismatch for ts %q", gotQuery["ts"])
	}

	if res.Attribution == "" {
		t.Error("expected attribution text")
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}

	first := res.Items[0]
	if first.ExternalID != 1009610 || first.Name != "Spider-Man" {
		t.Errorf("unexpected first item: %+v", first)
	}
	if first.ThumbnailURL != "http://img.example/spiderman.jpg" {
		t.Errorf("thumbnail = %q", first.ThumbnailURL)
	}
	if len(first.Comics) != 2 || first.Comics[0] != "Amazing Fantasy #15" {
		t.Errorf("comics = %v", first.Comics)
	}
	if len(res.Items[1].Comics) != 0 {
		t.Errorf("expected no comics for second item, got %v", res.Items[1].Comics)
	}
}

func TestSearchCharacters_ServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	})

	if _, err := c.SearchCharacters(context.Background(), "x"); err == nil {
		t.Fatal("expected error on 400 response")
	}
}

func TestSearchCharacters_RetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchPayload))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{BaseURL: srv.URL, PublicKey: "pub", PrivateKey: "priv", RetryAttempts: 2})
	t.Cleanup(func() { c.Close() })

	res, err := c.SearchCharacters(context.Background(), "Spider")
	if err != nil {
		t.Fatalf("SearchCharacters: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(res.Items) != 2 {
		t.Errorf("expected results after retry, got %d", len(res.Items))
	}
}

func TestFetchCharacter(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/public/characters/1009610" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchPayload))
	})

	rc, err := c.FetchCharacter(context.Background(), 1009610)
	if err != nil {
		t.Fatalf("FetchCharacter: %v", err)
	}
	if rc.Name != "Spider-Man" {
		t.Errorf("name = %q", rc.Name)
	}
}

func TestFetchCharacter_EmptyResults(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"results":[]}}`))
	})

	if _, err := c.FetchCharacter(context.Background(), 42); err == nil {
		t.Fatal("expected error for empty result set")
	}
}
