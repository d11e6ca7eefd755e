package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/repository"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDocumentStore struct {
	mu   sync.Mutex
	docs map[string]*models.Document
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]*models.Document)}
}

func (f *fakeDocumentStore) Create(ctx context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDocumentStore) GetByID(ctx context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDocumentStore) List(ctx context.Context) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		cp := *doc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeDocumentStore) ListByStatus(ctx context.Context, statuses ...models.DocumentStatus) ([]*models.Document, error) {
	all, _ := f.List(ctx)
	var out []*models.Document
	for _, doc := range all {
		for _, status := range statuses {
			if doc.Status == status {
				out = append(out, doc)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeDocumentStore) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	doc.Status = status
	return nil
}

func (f *fakeDocumentStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentStore) HasProcessed(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.docs {
		if doc.Status == models.DocumentStatusProcessed {
			return true, nil
		}
	}
	return false, nil
}

// publishingSectionStore mimics the transactional publish: it stores the
// sections and flips the document to processed through the shared doc store.
type publishingSectionStore struct {
	docs *fakeDocumentStore

	mu        sync.Mutex
	published map[string][]models.Section
}

func newPublishingSectionStore(docs *fakeDocumentStore) *publishingSectionStore {
	return &publishingSectionStore{docs: docs, published: make(map[string][]models.Section)}
}

func (f *publishingSectionStore) Publish(ctx context.Context, documentID string, sections []models.Section) error {
	f.mu.Lock()
	f.published[documentID] = sections
	f.mu.Unlock()
	return f.docs.UpdateStatus(ctx, documentID, models.DocumentStatusProcessed)
}

func (f *publishingSectionStore) ListByDocument(ctx context.Context, documentID string) ([]models.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[documentID], nil
}

func (f *publishingSectionStore) ListRetrievable(ctx context.Context) ([]repository.RetrievableSection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.RetrievableSection
	for id, sections := range f.published {
		doc, err := f.docs.GetByID(ctx, id)
		if err != nil || doc.Status != models.DocumentStatusProcessed {
			continue
		}
		for _, sec := range sections {
			out = append(out, repository.RetrievableSection{
				Section:  sec,
				FileName: doc.FileName,
				Category: doc.Category,
			})
		}
	}
	return out, nil
}

type stubExtractor struct {
	sections []ExtractedSection
	err      error
}

func (s stubExtractor) ExtractSections(ctx context.Context, path, extension string) ([]ExtractedSection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sections, nil
}

func testUploadConfig(t *testing.T) *config.UploadConfig {
	t.Helper()
	return &config.UploadConfig{Dir: t.TempDir(), MaxSizeBytes: 1 << 20}
}

func newTestKnowledgeService(t *testing.T, extractor SectionExtractor) (*KnowledgeService, *fakeDocumentStore, *publishingSectionStore) {
	t.Helper()
	docs := newFakeDocumentStore()
	sections := newPublishingSectionStore(docs)
	svc := NewKnowledgeService(docs, sections, extractor, testUploadConfig(t), defaultKnowledgeConfig(), zap.NewNop())
	return svc, docs, sections
}

func TestKnowledgeService_UploadRejectsUnknownExtension(t *testing.T) {
	svc, _, _ := newTestKnowledgeService(t, stubExtractor{})

	_, err := svc.Upload(context.Background(), strings.NewReader("x"), "malware.exe", "", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestKnowledgeService_UploadRejectsOversizedFile(t *testing.T) {
	docs := newFakeDocumentStore()
	sections := newPublishingSectionStore(docs)
	upload := &config.UploadConfig{Dir: t.TempDir(), MaxSizeBytes: 10}
	svc := NewKnowledgeService(docs, sections, stubExtractor{}, upload, defaultKnowledgeConfig(), zap.NewNop())

	_, err := svc.Upload(context.Background(),
		strings.NewReader("exactly 10"), "fits.txt", "", "")
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(),
		strings.NewReader("eleven chars"), "too-big.txt", "", "")
	assert.ErrorIs(t, err, models.ErrValidation)

	// The rejected upload leaves neither a record nor a content file.
	stored, err := docs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "fits.txt", stored[0].FileName)

	entries, err := os.ReadDir(upload.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestKnowledgeService_UploadStoresFileAndRecord(t *testing.T) {
	svc, docs, _ := newTestKnowledgeService(t, stubExtractor{})

	doc, err := svc.Upload(context.Background(),
		strings.NewReader("hello world"), "my notes.txt", "notes", "")
	require.NoError(t, err)

	assert.Equal(t, "my notes.txt", doc.FileName)
	assert.Contains(t, doc.StoredFileName, "my_notes.txt")
	assert.Equal(t, "general", doc.Category, "empty category defaults")
	assert.Equal(t, models.DocumentStatusUnprocessed, doc.Status)
	assert.Equal(t, int64(len("hello world")), doc.Size)

	data, err := os.ReadFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	stored, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.FileName, stored.FileName)
}

func TestKnowledgeService_UploadIDsAreDistinct(t *testing.T) {
	svc, _, _ := newTestKnowledgeService(t, stubExtractor{})

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := svc.Upload(context.Background(),
				strings.NewReader("x"), fmt.Sprintf("f%d.txt", i), "", "")
			if err == nil {
				ids <- doc.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{})
	count := 0
	for id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate document id %s", id)
		seen[id] = struct{}{}
		count++
	}
	assert.Equal(t, n, count)
}

func TestKnowledgeService_IngestPublishesSections(t *testing.T) {
	extractor := stubExtractor{sections: []ExtractedSection{
		{Title: "Intro", Text: "some text"},
		{Title: "Details", Text: "more text"},
	}}
	svc, docs, sections := newTestKnowledgeService(t, extractor)

	notified := 0
	svc.OnCorpusChange(func() { notified++ })

	doc, err := svc.Upload(context.Background(), strings.NewReader("x"), "doc.txt", "", "services")
	require.NoError(t, err)

	svc.Ingest(context.Background(), doc.ID)

	stored, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusProcessed, stored.Status)

	published, err := sections.ListByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "Intro", published[0].Title)
	assert.Equal(t, 0, published[0].Ordinal)
	assert.Equal(t, doc.ID, published[0].DocumentID)
	assert.Equal(t, 1, published[1].Ordinal)

	assert.Equal(t, 1, notified)

	ok, err := svc.HasProcessed(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKnowledgeService_IngestFailureMarksFailed(t *testing.T) {
	svc, docs, sections := newTestKnowledgeService(t, stubExtractor{err: errors.New("corrupt file")})

	doc, err := svc.Upload(context.Background(), strings.NewReader("x"), "doc.txt", "", "")
	require.NoError(t, err)

	svc.Ingest(context.Background(), doc.ID)

	stored, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusFailed, stored.Status)

	published, _ := sections.ListByDocument(context.Background(), doc.ID)
	assert.Empty(t, published)
}

func TestKnowledgeService_ReingestAllRecoversFailed(t *testing.T) {
	docs := newFakeDocumentStore()
	sections := newPublishingSectionStore(docs)
	failing := &switchableExtractor{err: errors.New("corrupt file")}
	svc := NewKnowledgeService(docs, sections, failing, testUploadConfig(t), defaultKnowledgeConfig(), zap.NewNop())

	doc, err := svc.Upload(context.Background(), strings.NewReader("x"), "doc.txt", "", "")
	require.NoError(t, err)
	svc.Ingest(context.Background(), doc.ID)

	stored, _ := docs.GetByID(context.Background(), doc.ID)
	require.Equal(t, models.DocumentStatusFailed, stored.Status)

	// The parser recovers; a non-forced pass picks up the failed document.
	failing.set(nil, []ExtractedSection{{Title: "Intro", Text: "ok now"}})
	require.NoError(t, svc.ReingestAll(context.Background(), false))

	stored, _ = docs.GetByID(context.Background(), doc.ID)
	assert.Equal(t, models.DocumentStatusProcessed, stored.Status)
}

type switchableExtractor struct {
	mu       sync.Mutex
	calls    int
	err      error
	sections []ExtractedSection
}

func (s *switchableExtractor) set(err error, sections []ExtractedSection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.sections = sections
}

func (s *switchableExtractor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *switchableExtractor) ExtractSections(ctx context.Context, path, extension string) ([]ExtractedSection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.sections, nil
}

func TestKnowledgeService_ReingestAllIsIdempotent(t *testing.T) {
	docs := newFakeDocumentStore()
	sections := newPublishingSectionStore(docs)
	extractor := &switchableExtractor{sections: []ExtractedSection{
		{Title: "Intro", Text: "some text"},
		{Title: "Details", Text: "more text"},
	}}
	svc := NewKnowledgeService(docs, sections, extractor, testUploadConfig(t), defaultKnowledgeConfig(), zap.NewNop())

	doc, err := svc.Upload(context.Background(), strings.NewReader("x"), "doc.txt", "", "")
	require.NoError(t, err)
	svc.Ingest(context.Background(), doc.ID)
	require.Equal(t, 1, extractor.callCount())

	before, err := sections.ListByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, before, 2)

	// With nothing new in the corpus, non-forced passes leave the
	// processed document and its section set untouched.
	require.NoError(t, svc.ReingestAll(context.Background(), false))
	require.NoError(t, svc.ReingestAll(context.Background(), false))

	assert.Equal(t, 1, extractor.callCount(), "processed documents are not re-parsed")

	after, err := sections.ListByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	stored, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusProcessed, stored.Status)
}

func TestKnowledgeService_DeleteRemovesFileAndNotifies(t *testing.T) {
	svc, _, _ := newTestKnowledgeService(t, stubExtractor{})

	notified := 0
	svc.OnCorpusChange(func() { notified++ })

	doc, err := svc.Upload(context.Background(), strings.NewReader("x"), "doc.txt", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), doc.ID))
	_, err = os.Stat(doc.Path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 1, notified)

	// Deleting again reports not found.
	err = svc.Delete(context.Background(), doc.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestKnowledgeService_ListExcludesMissingContent(t *testing.T) {
	svc, _, _ := newTestKnowledgeService(t, stubExtractor{})

	kept, err := svc.Upload(context.Background(), strings.NewReader("x"), "kept.txt", "", "")
	require.NoError(t, err)
	gone, err := svc.Upload(context.Background(), strings.NewReader("x"), "gone.txt", "", "")
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone.Path))

	docs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, kept.ID, docs[0].ID)
}

func TestKnowledgeService_SummaryRequiresProcessed(t *testing.T) {
	extractor := stubExtractor{sections: []ExtractedSection{
		{Title: "Intro", Text: "some text"},
	}}
	svc, _, _ := newTestKnowledgeService(t, extractor)

	doc, err := svc.Upload(context.Background(), strings.NewReader("x"), "doc.txt", "desc", "services")
	require.NoError(t, err)

	_, err = svc.Summary(context.Background(), doc.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	svc.Ingest(context.Background(), doc.ID)

	summary, err := svc.Summary(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, summary.ID)
	assert.Equal(t, 1, summary.SectionCount)
	assert.Equal(t, []string{"Intro"}, summary.SectionTitles)
	assert.Equal(t, len("some text"), summary.TextLength)
}
