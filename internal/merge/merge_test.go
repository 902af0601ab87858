package merge

import (
	"testing"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

func TestCombineScenario6(t *testing.T) {
	anidb := domain.Anime{
		ID:        "A42",
		UniqueIDs: map[string]string{"anidb": "42"},
		Genres:    nil,
		Seasons: []domain.Season{
			{Number: 0, Images: []domain.Image{{Source: "anidb", Name: "s0"}}},
			{Number: 1, Images: []domain.Image{{Source: "anidb", Name: "s1"}}},
		},
	}
	tmdb := domain.Anime{
		ID:        "T1234",
		UniqueIDs: map[string]string{"tmdb": "1234"},
		Genres:    []string{"Drama"},
		Seasons: []domain.Season{
			{Number: 0, Images: []domain.Image{{Source: "tmdb", Name: "t0"}}},
			{Number: 1, Images: []domain.Image{{Source: "tmdb", Name: "t1"}}},
			{Number: 2, Images: []domain.Image{{Source: "tmdb", Name: "t2"}}},
		},
	}

	got, err := Combine(anidb, tmdb, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "A42-T1234S2" {
		t.Fatalf("id = %q, want A42-T1234S2", got.ID)
	}
	if len(got.Seasons) != 2 {
		t.Fatalf("seasons = %d, want 2", len(got.Seasons))
	}
	if got.Seasons[0].Number != 0 || got.Seasons[1].Number != 1 {
		t.Fatalf("season numbers = %d,%d, want 0,1", got.Seasons[0].Number, got.Seasons[1].Number)
	}
	season1 := got.Seasons[1]
	if len(season1.Images) != 2 || season1.Images[0].Name != "s1" || season1.Images[1].Name != "t2" {
		t.Fatalf("season 1 images = %+v, want [s1 t2]", season1.Images)
	}
	if len(got.Genres) != 1 || got.Genres[0] != "Drama" {
		t.Fatalf("genres = %+v, want tmdb's [Drama]", got.Genres)
	}
}

func TestCombineRejectsBadIDs(t *testing.T) {
	if _, err := Combine(domain.Anime{ID: "bogus"}, domain.Anime{ID: "T1"}, 1); err == nil {
		t.Fatal("expected error for non-anidb anidb anime id")
	}
	if _, err := Combine(domain.Anime{ID: "A1"}, domain.Anime{ID: "bogus"}, 1); err == nil {
		t.Fatal("expected error for non-tmdb tmdb anime id")
	}
}
