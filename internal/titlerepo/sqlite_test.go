package titlerepo

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

func newTestRepo(t *testing.T) *SqliteRepo {
	t.Helper()
	r, err := NewSqliteRepo(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestFindEmptyQueryReturnsNothing(t *testing.T) {
	r := newTestRepo(t)
	r.Store(domain.TitleEntry{Title: domain.Title{Value: "Foo", Aid: "1"}, Age: time.Now()})

	got, err := r.Find(domain.Title{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("fully-wildcard query returned %d rows, want 0", len(got))
	}
}

func TestFindWildcardFields(t *testing.T) {
	r := newTestRepo(t)
	now := time.Now()
	r.Store(domain.TitleEntry{Title: domain.Title{Value: "Foo", Aid: "1", Lang: "en", Type: "main"}, Age: now})
	r.Store(domain.TitleEntry{Title: domain.Title{Value: "Bar", Aid: "1", Lang: "ja", Type: "main"}, Age: now})

	got, err := r.Find(domain.Title{Aid: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows for aid-only query, want 2", len(got))
	}
}

func TestStoreReplaceOnConflict(t *testing.T) {
	r := newTestRepo(t)
	key := domain.Title{Value: "Foo", Aid: "1", Lang: "en", Type: "main"}
	t1 := time.Now().Add(-time.Hour).Truncate(time.Second)
	t2 := time.Now().Truncate(time.Second)

	if err := r.Store(domain.TitleEntry{Title: key, Age: t1}); err != nil {
		t.Fatal(err)
	}
	if err := r.Store(domain.TitleEntry{Title: key, Age: t2}); err != nil {
		t.Fatal(err)
	}

	got, err := r.Find(domain.Title{Aid: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want exactly 1 after replace", len(got))
	}
	if !got[0].Age.Equal(t2) {
		t.Fatalf("age = %v, want the later write %v", got[0].Age, t2)
	}
}

func TestOverlayUnionsReadsAndScopesWrites(t *testing.T) {
	base := newTestRepo(t)
	upper := newTestRepo(t)
	ov := NewOverlay(base, upper)

	base.Store(domain.TitleEntry{Title: domain.Title{Value: "FromBase", Aid: "1"}, Age: time.Now()})

	if err := ov.Store(domain.TitleEntry{Title: domain.Title{Value: "FromUpper", Aid: "1"}, Age: time.Now()}); err != nil {
		t.Fatal(err)
	}

	got, err := ov.Find(domain.Title{Aid: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("overlay find returned %d, want 2 (base + upper)", len(got))
	}

	baseOnly, _ := base.Find(domain.Title{Aid: "1"})
	if len(baseOnly) != 1 {
		t.Fatalf("overlay Store must not touch base; base has %d rows", len(baseOnly))
	}
}
