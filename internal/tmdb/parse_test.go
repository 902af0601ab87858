package tmdb

import "testing"

const sampleShowJSON = `{
  "id": 1234,
  "name": "Demo Show",
  "overview": "A demo.",
  "genres": [{"name": "Action"}, {"name": "Comedy"}],
  "images": {
    "posters": [{"file_path": "/poster.jpg"}],
    "backdrops": [{"file_path": "/backdrop.jpg"}]
  },
  "seasons": [
    {
      "season_number": 0,
      "name": "Specials",
      "overview": "",
      "episodes": [],
      "images": {}
    },
    {
      "season_number": 1,
      "name": "Season 1",
      "overview": "First season.",
      "air_date": "2020-01-02",
      "episodes": [
        {
          "episode_number": 1,
          "runtime": 24,
          "air_date": "2020-01-02",
          "name": "Pilot",
          "overview": "It begins.",
          "vote_average": 8.1,
          "vote_count": 42,
          "images": {}
        }
      ],
      "images": {},
      "credits": {
        "cast": [
          {"name": "Some Actor", "profile_path": "/a.jpg", "roles": [{"character": "Hero"}]}
        ],
        "crew": [
          {"name": "Some Director", "department": "Directing", "known_for_department": "Directing", "jobs": [{"job": "Director"}]}
        ]
      }
    }
  ]
}`

func TestParseAnimeJSONBuildsSeasonsAndInheritsFromSeasonOne(t *testing.T) {
	anime, err := ParseAnimeJSON([]byte(sampleShowJSON), "en")
	if err != nil {
		t.Fatal(err)
	}
	if anime.ID != "T1234" {
		t.Fatalf("id = %q, want T1234", anime.ID)
	}
	if len(anime.Genres) != 2 {
		t.Fatalf("genres = %v", anime.Genres)
	}
	if len(anime.Seasons) != 2 {
		t.Fatalf("seasons = %d, want 2", len(anime.Seasons))
	}

	s1 := anime.Seasons[1]
	if s1.ID != "T1234S1" {
		t.Fatalf("season 1 id = %q, want T1234S1", s1.ID)
	}
	if len(s1.Episodes) != 1 || s1.Episodes[0].Number != 1 {
		t.Fatalf("season 1 episodes = %+v", s1.Episodes)
	}
	if len(s1.Genres) != 2 {
		t.Fatalf("season did not inherit show genres: %v", s1.Genres)
	}

	foundBackdrop := false
	for _, img := range s1.Images {
		if img.Type == "backdrop" {
			foundBackdrop = true
		}
	}
	if !foundBackdrop {
		t.Fatal("season did not receive the show's backdrop image")
	}

	if len(anime.Cast) != 1 || anime.Cast[0].Actor != "Some Actor" {
		t.Fatalf("show did not inherit season 1 cast: %+v", anime.Cast)
	}
	if len(anime.Credits) != 1 || anime.Credits[0].Job != "Director" {
		t.Fatalf("show did not inherit season 1 credits: %+v", anime.Credits)
	}
	if anime.Airdate == nil {
		t.Fatal("show did not inherit season 1 airdate")
	}
}

func TestParseCreditsExpandsOneCreditPerJob(t *testing.T) {
	raw := []map[string]any{
		{
			"name": "Jane Doe", "department": "Directing", "known_for_department": "Directing",
			"jobs": []any{
				map[string]any{"job": "Director"},
				map[string]any{"job": "Writer"},
			},
		},
	}
	got := parseCredits(raw)
	if len(got) != 2 {
		t.Fatalf("parseCredits = %+v, want 2 entries", got)
	}
}
