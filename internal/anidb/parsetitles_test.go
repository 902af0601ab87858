package anidb

import (
	"testing"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

const sampleTitlesXML = `<?xml version="1.0" encoding="UTF-8"?>
<animetitles>
<anime aid="42">
	<title xml:lang="x-jat" type="main">Koe no Katachi</title>
	<title xml:lang="en" type="official">A Silent Voice</title>
	<title xml:lang="ja" type="syn">聲の形</title>
</anime>
</animetitles>`

func TestParseTitlesXML(t *testing.T) {
	var got []domain.Title
	if err := ParseTitlesXMLBytes([]byte(sampleTitlesXML), func(title domain.Title) {
		got = append(got, title)
	}); err != nil {
		t.Fatal(err)
	}

	if len(got) != 3 {
		t.Fatalf("got %d titles, want 3", len(got))
	}
	for _, ti := range got {
		if ti.Aid != "42" {
			t.Fatalf("title %+v has aid %q, want 42", ti, ti.Aid)
		}
	}
	if got[0].Value != "Koe no Katachi" || got[0].Type != "main" || got[0].Lang != "x-jat" {
		t.Fatalf("title[0] = %+v", got[0])
	}
	if got[1].Value != "A Silent Voice" || got[1].Type != "official" {
		t.Fatalf("title[1] = %+v", got[1])
	}
	if got[2].Type != "synonym" {
		t.Fatalf("syn type not rewritten: %+v", got[2])
	}
}
