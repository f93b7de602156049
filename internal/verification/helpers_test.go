package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"partner-onboarding/internal/docinspect/docinspecttest"
	"partner-onboarding/internal/shared/storage/object"
)

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	storeErr  error
	deleteErr func(ref string) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Store(ctx context.Context, in object.StoreInput) (object.Blob, error) {
	if err := object.ValidateInput(in); err != nil {
		return object.Blob{}, err
	}
	f.mu.Lock()
	storeErr := f.storeErr
	f.mu.Unlock()
	if storeErr != nil {
		return object.Blob{}, storeErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return object.Blob{}, err
	}
	ref := object.NewRef(in.UserID, in.Folder, in.ContentType)
	f.mu.Lock()
	f.objects[ref] = data
	f.mu.Unlock()
	return object.Blob{Ref: ref, URL: "https://blobs.test/" + ref, SizeBytes: int64(len(data))}, nil
}

func (f *fakeStore) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		if err := f.deleteErr(ref); err != nil {
			return err
		}
	}
	delete(f.objects, ref)
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	return nil, errors.New("not supported")
}

func (f *fakeStore) has(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[ref]
	return ok
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakeOrphans struct {
	mu  sync.Mutex
	got []Orphan
}

func (f *fakeOrphans) ReportOrphan(ctx context.Context, o Orphan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, o)
	return nil
}

type fixture struct {
	svc     *Service
	store   *fakeStore
	repo    *MemoryRepo
	orphans *fakeOrphans
}

func newFixture(t *testing.T, resolve Resolver) fixture {
	t.Helper()
	f := fixture{
		store:   newFakeStore(),
		repo:    NewMemoryRepo(),
		orphans: &fakeOrphans{},
	}
	f.svc = &Service{
		Store:   f.store,
		Repo:    f.repo,
		Policy:  AutoApprove{},
		Resolve: resolve,
		Orphans: f.orphans,
		Now:     func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	_, err := f.svc.EnsureRecord(context.Background(), "partner-1")
	require.NoError(t, err)
	return f
}

func pngInput(userID string, docType DocumentType, seed uint8) SubmitInput {
	data := docinspecttest.PNG(seed)
	return SubmitInput{
		UserID:      userID,
		DocType:     string(docType),
		Data:        data,
		ContentType: "image/png",
		SizeBytes:   int64(len(data)),
	}
}

func (f fixture) submit(t *testing.T, docType DocumentType, seed uint8) Record {
	t.Helper()
	rec, err := f.svc.SubmitDocument(context.Background(), pngInput("partner-1", docType, seed))
	require.NoError(t, err, fmt.Sprintf("submit %s", docType))
	return rec
}

func (f fixture) submitAll(t *testing.T) Record {
	t.Helper()
	var rec Record
	for i, docType := range DocumentTypes {
		rec = f.submit(t, docType, uint8(i))
	}
	return rec
}

func (f fixture) record(t *testing.T) Record {
	t.Helper()
	rec, err := f.repo.Get(context.Background(), "partner-1")
	require.NoError(t, err)
	return rec
}
