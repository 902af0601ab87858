package app

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ObviusOwl/amc2cached/internal/notification"
	"github.com/ObviusOwl/amc2cached/internal/objectstore"
)

type fakeBackoffStore struct {
	onBackoff func(error)
}

func (f *fakeBackoffStore) Stat(context.Context, string) (objectstore.Stat, error) {
	return objectstore.Stat{}, nil
}
func (f *fakeBackoffStore) Get(context.Context, string) (objectstore.Object, error) {
	return objectstore.Object{}, nil
}
func (f *fakeBackoffStore) Put(context.Context, string, objectstore.Object) error { return nil }
func (f *fakeBackoffStore) SetOnBackoff(fn func(error))                          { f.onBackoff = fn }

// fixedURLHooks is the minimal Hooks implementation a test needs: DefaultHooks
// covers MakeHeaders/MakeContent, but MakeURL is always store-specific.
type fixedURLHooks struct {
	objectstore.DefaultHooks
}

func (fixedURLHooks) MakeURL(context.Context, string, bool) (string, error) {
	return "http://example.invalid", nil
}

type fakeNotify struct {
	backoffCalls []string
}

func (f *fakeNotify) OnBackoff(store string, cause error) { f.backoffCalls = append(f.backoffCalls, store) }
func (f *fakeNotify) OnBan()                               {}

var _ notification.Service = (*fakeNotify)(nil)

func TestBuildCachedStoreWiresBackoffWirerStores(t *testing.T) {
	fake := &fakeBackoffStore{}
	notify := &fakeNotify{}

	store, err := buildCachedStore(
		func() (objectstore.ObjectStore, error) { return fake, nil },
		"null://", 0, objectstore.S3Credentials{}, zerolog.Nop(), notify, "fake.store",
	)
	if err != nil {
		t.Fatal(err)
	}
	if store == nil {
		t.Fatal("expected a non-nil CachedStore")
	}
	if fake.onBackoff == nil {
		t.Fatal("expected SetOnBackoff to have been called")
	}
	fake.onBackoff(errors.New("boom"))
	if len(notify.backoffCalls) != 1 || notify.backoffCalls[0] != "fake.store" {
		t.Fatalf("backoffCalls = %v", notify.backoffCalls)
	}
}

func TestBuildCachedStoreWiresPlainHTTPStore(t *testing.T) {
	notify := &fakeNotify{}
	http := objectstore.NewHTTPStore(objectstore.HTTPStoreConfig{
		Hooks: fixedURLHooks{},
		Log:   zerolog.Nop(),
	})

	_, err := buildCachedStore(
		func() (objectstore.ObjectStore, error) { return http, nil },
		"null://", 0, objectstore.S3Credentials{}, zerolog.Nop(), notify, "http.store",
	)
	if err != nil {
		t.Fatal(err)
	}
	if http.OnBackoff == nil {
		t.Fatal("expected OnBackoff to be set directly on the HTTPStore")
	}
}
