package mapping

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/domain"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
)

type memBackend struct {
	objects map[string]objectstore.Object
}

func newMemBackend() *memBackend { return &memBackend{objects: map[string]objectstore.Object{}} }

func (m *memBackend) Stat(_ context.Context, name string) (objectstore.Stat, error) {
	obj, ok := m.objects[name]
	if !ok {
		return objectstore.Stat{}, objectstore.ErrObjectNotFound
	}
	return obj.Stat, nil
}
func (m *memBackend) Get(_ context.Context, name string) (objectstore.Object, error) {
	obj, ok := m.objects[name]
	if !ok {
		return objectstore.Object{}, objectstore.ErrObjectNotFound
	}
	return obj, nil
}
func (m *memBackend) Put(_ context.Context, name string, obj objectstore.Object) error {
	m.objects[name] = obj
	return nil
}

func TestJsonRepoLoadsEmptyOnObjectNotFound(t *testing.T) {
	repo, err := NewJsonRepo("mappings.json", newMemBackend(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	all, err := repo.Dump()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("dump = %+v, want empty", all)
	}
}

func TestJsonRepoRoundTripsThroughBackend(t *testing.T) {
	backend := newMemBackend()
	repo, err := NewJsonRepo("mappings.json", backend, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Store([]domain.AnimeMapping{{Anidb: "1", Tmdb: "T1"}}, true); err != nil {
		t.Fatal(err)
	}
	if _, ok := backend.objects["mappings.json"]; !ok {
		t.Fatal("store should have written the document back to the backend")
	}

	// A second repo over the same backend should see the persisted value.
	repo2, err := NewJsonRepo("mappings.json", backend, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo2.ResolveTmdb(domain.AnimeMapping{Anidb: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Tmdb != "T1" {
		t.Fatalf("ResolveTmdb = %+v", got)
	}
}

func TestJsonRepoToleratesCorruptDocument(t *testing.T) {
	backend := newMemBackend()
	backend.objects["mappings.json"] = objectstore.NewObject(objectstore.Stat{ContentType: "text/json"}, []byte("not json"))

	repo, err := NewJsonRepo("mappings.json", backend, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	all, err := repo.Dump()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("dump over corrupt document = %+v, want empty", all)
	}
}
