package anidb

import "testing"

func TestParseEpnoScenario5(t *testing.T) {
	// type=2 (special) "S3" parsed in specials mode -> number 3.
	if typ, num, err := parseEpno(rawEpno{Type: "2", Value: "S3"}); err != nil || typ != 2 || num != 3 {
		t.Fatalf("parseEpno(S3) = %d, %d, %v", typ, num, err)
	}
	// type=1 (regular) "007" parsed as a plain int -> 7.
	if typ, num, err := parseEpno(rawEpno{Type: "1", Value: "007"}); err != nil || typ != 1 || num != 7 {
		t.Fatalf("parseEpno(007) = %d, %d, %v", typ, num, err)
	}
}

func TestParseEpisodeFiltersByType(t *testing.T) {
	special := rawEpisode{Epno: rawEpno{Type: "2", Value: "S3"}}
	regular := rawEpisode{Epno: rawEpno{Type: "1", Value: "007"}}

	if _, ok := parseEpisode(special, false); ok {
		t.Fatal("type=2 episode should be filtered out of the regular season")
	}
	ep, ok := parseEpisode(special, true)
	if !ok || ep.Number != 3 {
		t.Fatalf("parseEpisode(special, true) = %+v, %v", ep, ok)
	}

	ep, ok = parseEpisode(regular, false)
	if !ok || ep.Number != 7 {
		t.Fatalf("parseEpisode(regular, false) = %+v, %v", ep, ok)
	}
	if _, ok := parseEpisode(regular, true); ok {
		t.Fatal("type=1 episode should be filtered out of the specials season")
	}
}

func TestParseAnimeTagsDropsMaintenanceSubtree(t *testing.T) {
	tags := []rawTag{
		{ID: "1", Name: "Maintenance tags"},
		{ID: "2", ParentID: "1", Name: "to be rewritten"},
		{ID: "3", Name: "Elements"},
		{ID: "4", ParentID: "3", Name: "Mecha"},
	}
	got := parseAnimeTags(tags)
	want := map[string]bool{"Mecha": true}
	if len(got) != 1 || !want[got[0]] {
		t.Fatalf("parseAnimeTags = %v, want only [Mecha]", got)
	}
}

func TestParseAnimeXMLBuildsTwoSeasons(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<anime id="69">
  <titles>
    <title xml:lang="en" type="main">Demo</title>
  </titles>
  <description>A demo show.</description>
  <startdate>2020-01-02</startdate>
  <picture>69.jpg</picture>
  <episodes>
    <episode>
      <epno type="1">1</epno>
      <length>24</length>
      <airdate>2020-01-02</airdate>
      <title xml:lang="en" type="main">Episode One</title>
    </episode>
    <episode>
      <epno type="2">S1</epno>
      <length>5</length>
      <title xml:lang="en" type="main">Special One</title>
    </episode>
  </episodes>
  <characters>
    <character>
      <name>Hero</name>
      <picture>hero.jpg</picture>
      <seiyuu picture="va.jpg">Some Actor</seiyuu>
    </character>
    <character>
      <name>No Voice</name>
    </character>
  </characters>
  <creators>
    <name type="Direction">Jane Director</name>
    <name type="Music">Some Composer</name>
  </creators>
  <ratings>
    <permanent count="100">8.50</permanent>
  </ratings>
  <tags>
    <tag id="1"><name>Elements</name></tag>
    <tag id="2" parentid="1"><name>Mecha</name></tag>
  </tags>
</anime>`)

	anime, err := ParseAnimeXML(doc)
	if err != nil {
		t.Fatal(err)
	}

	if anime.ID != "A69" {
		t.Fatalf("id = %q, want A69", anime.ID)
	}
	if anime.UniqueIDs["anidb"] != "69" {
		t.Fatalf("uniqueids = %+v", anime.UniqueIDs)
	}
	if len(anime.Cast) != 1 || anime.Cast[0].Actor != "Some Actor" {
		t.Fatalf("cast = %+v, want one seiyuu-backed role", anime.Cast)
	}
	if len(anime.Directors) != 1 || anime.Directors[0] != "Jane Director" {
		t.Fatalf("directors = %v", anime.Directors)
	}
	if len(anime.Ratings) != 1 || anime.Ratings[0].Votes != 100 {
		t.Fatalf("ratings = %+v", anime.Ratings)
	}
	if len(anime.Tags) != 1 || anime.Tags[0] != "Mecha" {
		t.Fatalf("tags = %v", anime.Tags)
	}
	if len(anime.Seasons) != 2 {
		t.Fatalf("seasons = %d, want 2", len(anime.Seasons))
	}

	specials, regular := anime.Seasons[0], anime.Seasons[1]
	if specials.Number != 0 || len(specials.Episodes) != 1 || specials.Episodes[0].Number != 1 {
		t.Fatalf("specials season = %+v", specials)
	}
	if specials.Titles[0].Value != "Specials" {
		t.Fatalf("specials season title = %+v", specials.Titles)
	}
	if regular.Number != 1 || len(regular.Episodes) != 1 || regular.Episodes[0].Number != 1 {
		t.Fatalf("regular season = %+v", regular)
	}
	if regular.Description != anime.Description {
		t.Fatalf("regular season did not inherit anime metadata: %+v", regular)
	}
}
