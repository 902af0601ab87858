package mapping

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

func newTestRepo(t *testing.T) *SqliteRepo {
	t.Helper()
	repo, err := NewSqliteRepo(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestStoreReplaceEnforcesOneToOne(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.Store([]domain.AnimeMapping{{Anidb: "42", Tmdb: "T1"}}, true); err != nil {
		t.Fatal(err)
	}
	if err := repo.Store([]domain.AnimeMapping{{Anidb: "99", Tmdb: "T2"}}, true); err != nil {
		t.Fatal(err)
	}

	// Replacing anidb=42 with a new tmdb id must drop the old pair and any
	// other pair sharing the new tmdb id.
	if err := repo.Store([]domain.AnimeMapping{{Anidb: "42", Tmdb: "T2"}}, true); err != nil {
		t.Fatal(err)
	}

	got, err := repo.ResolveTmdb(domain.AnimeMapping{Anidb: "42"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Tmdb != "T2" {
		t.Fatalf("resolve_tmdb(42) = %+v, want [(42,T2)]", got)
	}

	got, err = repo.ResolveAnidb(domain.AnimeMapping{Tmdb: "T2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Anidb != "42" {
		t.Fatalf("resolve_anidb(T2) = %+v, want exactly [(42,T2)], old (99,T2) should be gone", got)
	}
}

func TestLoadRequiresBothIds(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.Load(domain.AnimeMapping{Anidb: "42"}); err == nil {
		t.Fatal("expected an error when tmdb id is missing")
	}
}

func TestRemoveAndDump(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Store([]domain.AnimeMapping{{Anidb: "1", Tmdb: "T1"}, {Anidb: "2", Tmdb: "T2"}}, true); err != nil {
		t.Fatal(err)
	}
	if err := repo.Remove(domain.AnimeMapping{Anidb: "1"}); err != nil {
		t.Fatal(err)
	}
	all, err := repo.Dump()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Anidb != "2" {
		t.Fatalf("dump = %+v, want only (2,T2)", all)
	}
}
