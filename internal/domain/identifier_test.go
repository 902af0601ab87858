package domain

import "testing"

func TestParseIdentifierRoundTrip(t *testing.T) {
	cases := []string{
		"A12345",
		"T999",
		"T999S1",
		"A12345-T999S1",
		"A0",
		"T1S0",
	}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			id, err := ParseIdentifier(s)
			if err != nil {
				t.Fatalf("ParseIdentifier(%q): %v", s, err)
			}
			if got := id.String(); got != s {
				t.Fatalf("round trip: parse(%q).String() = %q", s, got)
			}
		})
	}
}

func TestParseIdentifierRejects(t *testing.T) {
	cases := []string{
		"",
		"A",
		"T",
		"A-1",
		"A1-T1",
		"A1.5",
		"a1",
		"A+1",
		"A 1",
		"X1",
		"A1-T1S",
		"A1-TS1",
	}
	for _, s := range cases {
		t.Run(s, func(t *testing.T) {
			if _, err := ParseIdentifier(s); err == nil {
				t.Fatalf("ParseIdentifier(%q): expected error", s)
			}
		})
	}
}

func TestParseIdentifierPriority(t *testing.T) {
	// T999S1 must resolve as a TmdbSeasonID, never be mistaken for a bare
	// TmdbID with trailing garbage.
	id, err := ParseIdentifier("T999S1")
	if err != nil {
		t.Fatal(err)
	}
	if id.TmdbSeason == nil || id.Tmdb != nil || id.Anidb != nil || id.Mapping != nil {
		t.Fatalf("expected TmdbSeason shape, got %+v", id)
	}
}
