package audit

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

type fakeRepo struct {
	all []domain.AnimeMapping
}

func (f *fakeRepo) ResolveTmdb(domain.AnimeMapping) ([]domain.AnimeMapping, error) { return nil, nil }
func (f *fakeRepo) ResolveAnidb(domain.AnimeMapping) ([]domain.AnimeMapping, error) {
	return nil, nil
}
func (f *fakeRepo) Load(domain.AnimeMapping) (*domain.AnimeMapping, error)  { return nil, nil }
func (f *fakeRepo) Store([]domain.AnimeMapping, bool) error                 { return nil }
func (f *fakeRepo) Remove(domain.AnimeMapping) error                        { return nil }
func (f *fakeRepo) Dump() ([]domain.AnimeMapping, error)                    { return f.all, nil }
func (f *fakeRepo) Purge() error                                            { return nil }

func TestAuditMappingsCleanRepoHasNoViolations(t *testing.T) {
	repo := &fakeRepo{all: []domain.AnimeMapping{
		{Anidb: "A1", Tmdb: "T1S1"},
		{Anidb: "A2", Tmdb: "T2S1"},
	}}
	svc := NewService(zerolog.Nop(), repo)
	report, err := svc.AuditMappings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Checked != 2 || len(report.Violations) != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestAuditMappingsFindsSharedIds(t *testing.T) {
	repo := &fakeRepo{all: []domain.AnimeMapping{
		{Anidb: "A1", Tmdb: "T1S1"},
		{Anidb: "A2", Tmdb: "T1S1"},
		{Anidb: "A3", Tmdb: "T3S1"},
	}}
	svc := NewService(zerolog.Nop(), repo)
	report, err := svc.AuditMappings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Violations) != 1 {
		t.Fatalf("violations = %+v, want exactly one shared tmdb id", report.Violations)
	}
	v := report.Violations[0]
	if v.Field != "tmdb" || v.Value != "T1S1" || len(v.Pairs) != 2 {
		t.Fatalf("violation = %+v", v)
	}
}
