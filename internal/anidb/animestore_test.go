package anidb

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/ObviusOwl/amc2cached/internal/objectstore"
)

func TestParseAPIError(t *testing.T) {
	cases := []struct {
		doc  string
		want string
	}{
		{`<anime id="1"><titles/></anime>`, ""},
		{`<error>anime not found</error>`, "anime not found"},
		{`<error>Banned</error>`, "banned"},
	}
	for _, c := range cases {
		if got := parseAPIError([]byte(c.doc)); got != c.want {
			t.Fatalf("parseAPIError(%q) = %q, want %q", c.doc, got, c.want)
		}
	}
}

func TestAnimeHooksMakeContentTranslatesErrors(t *testing.T) {
	var banned bool
	h := animeHooks{onBan: func() { banned = true }}

	if _, err := h.MakeContent("1.xml", nil, []byte(`<error>anime not found</error>`)); !errors.Is(err, objectstore.ErrObjectNotFound) {
		t.Fatalf("not-found error = %v, want ErrObjectNotFound", err)
	}

	if _, err := h.MakeContent("1.xml", nil, []byte(`<error>banned</error>`)); !errors.Is(err, objectstore.ErrObjectNotFound) {
		t.Fatalf("banned error = %v, want ErrObjectNotFound", err)
	}
	if !banned {
		t.Fatal("onBan was not invoked on a banned response")
	}

	doc := []byte(`<anime id="1"></anime>`)
	out, err := h.MakeContent("1.xml", nil, doc)
	if err != nil || string(out) != string(doc) {
		t.Fatalf("MakeContent passthrough = %q, %v", out, err)
	}
}

func TestAnimeHooksMakeURLRejectsNonDigitAid(t *testing.T) {
	h := animeHooks{baseURL: "http://api.anidb.net:9001/httpapi"}
	if _, err := h.MakeURL(context.Background(), "not-a-number", false); err == nil {
		t.Fatal("expected an error for a non-digit aid")
	}
	u, err := h.MakeURL(context.Background(), "42.xml", false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(u, "aid=42") || !strings.Contains(u, "request=anime") {
		t.Fatalf("MakeURL = %q, missing expected query params", u)
	}
}
