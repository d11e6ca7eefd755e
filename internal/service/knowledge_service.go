package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/dto"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/repository"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/config"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DocumentStore is the persistence contract the knowledge service needs for
// document metadata.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context) ([]*models.Document, error)
	ListByStatus(ctx context.Context, statuses ...models.DocumentStatus) ([]*models.Document, error)
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus) error
	Delete(ctx context.Context, id string) error
	HasProcessed(ctx context.Context) (bool, error)
}

// SectionStore is the persistence contract for derived sections.
type SectionStore interface {
	Publish(ctx context.Context, documentID string, sections []models.Section) error
	ListByDocument(ctx context.Context, documentID string) ([]models.Section, error)
	ListRetrievable(ctx context.Context) ([]repository.RetrievableSection, error)
}

// KnowledgeService is the knowledge store: it owns documents and their
// sections, and runs ingestion as background work items on a bounded queue
// so the upload path never blocks on parsing.
type KnowledgeService struct {
	docs      DocumentStore
	sections  SectionStore
	extractor SectionExtractor
	upload    *config.UploadConfig
	cfg       *config.KnowledgeConfig
	logger    *zap.Logger

	queue  chan string
	wg     sync.WaitGroup
	lastID atomic.Int64

	mu       sync.Mutex
	inflight map[string]struct{}

	onChange atomic.Pointer[func()]
}

func NewKnowledgeService(
	docs DocumentStore,
	sections SectionStore,
	extractor SectionExtractor,
	upload *config.UploadConfig,
	cfg *config.KnowledgeConfig,
	logger *zap.Logger,
) *KnowledgeService {
	if err := os.MkdirAll(upload.Dir, 0755); err != nil {
		logger.Warn("Failed to create upload directory", zap.Error(err))
	}

	return &KnowledgeService{
		docs:      docs,
		sections:  sections,
		extractor: extractor,
		upload:    upload,
		cfg:       cfg,
		logger:    logger,
		queue:     make(chan string, cfg.QueueSize),
		inflight:  make(map[string]struct{}),
	}
}

// OnCorpusChange registers a callback fired after any ingestion or deletion
// changes the section corpus. The retrieval engine uses it to invalidate
// its index.
func (s *KnowledgeService) OnCorpusChange(fn func()) {
	s.onChange.Store(&fn)
}

func (s *KnowledgeService) notifyChange() {
	if fn := s.onChange.Load(); fn != nil {
		(*fn)()
	}
}

// Start launches the ingestion worker pool.
func (s *KnowledgeService) Start(ctx context.Context) {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for id := range s.queue {
				s.Ingest(ctx, id)
			}
		}()
	}
}

// Stop drains the queue and waits for in-flight ingestion to finish.
func (s *KnowledgeService) Stop() {
	close(s.queue)
	s.wg.Wait()
}

// Upload validates and stores the file, creates the metadata record, and
// schedules ingestion. It returns as soon as the record exists; ingestion
// outcome is observable through the document's status.
func (s *KnowledgeService) Upload(ctx context.Context, file io.Reader, fileName, description, category string) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !models.ExtensionAllowed(ext) {
		return nil, fmt.Errorf("%w: unsupported file type %q (allowed: %s)",
			models.ErrValidation, ext, strings.Join(models.AllowedExtensions, ", "))
	}
	if category == "" {
		category = "general"
	}

	id := s.nextDocumentID()
	storedName := id + "_" + strings.ReplaceAll(fileName, " ", "_")
	path := filepath.Join(s.upload.Dir, storedName)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	// LimitReader instead of trusting a declared size; one extra byte tells
	// an at-limit file apart from an oversized one.
	size, err := io.Copy(dst, io.LimitReader(file, s.upload.MaxSizeBytes+1))
	dst.Close()
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if size > s.upload.MaxSizeBytes {
		os.Remove(path)
		return nil, fmt.Errorf("%w: file exceeds the %d byte upload limit",
			models.ErrValidation, s.upload.MaxSizeBytes)
	}

	doc := &models.Document{
		ID:             id,
		FileName:       fileName,
		StoredFileName: storedName,
		Path:           path,
		Description:    description,
		Category:       category,
		Extension:      ext,
		Size:           size,
		UploadTime:     time.Now(),
		Status:         models.DocumentStatusUnprocessed,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	select {
	case s.queue <- doc.ID:
	default:
		// Queue full: the document stays unprocessed and the next
		// re-ingest pass picks it up.
		s.logger.Warn("Ingestion queue full, deferring document",
			zap.String("document_id", doc.ID),
		)
	}

	s.logger.Info("Document uploaded",
		zap.String("document_id", doc.ID),
		zap.String("filename", fileName),
		zap.String("category", category),
		zap.Int64("size", size),
	)
	return doc, nil
}

// Ingest processes one document end to end: extract, segment, publish.
// Extraction failure marks the document failed and leaves any previously
// published sections untouched. Concurrent ingestion of the same document
// is coalesced.
func (s *KnowledgeService) Ingest(ctx context.Context, documentID string) {
	s.mu.Lock()
	if _, busy := s.inflight[documentID]; busy {
		s.mu.Unlock()
		return
	}
	s.inflight[documentID] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, documentID)
		s.mu.Unlock()
	}()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		s.logger.Warn("Ingestion skipped, document missing",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return
	}

	if err := s.docs.UpdateStatus(ctx, doc.ID, models.DocumentStatusProcessing); err != nil {
		s.logger.Error("Failed to mark document processing",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		return
	}

	extracted, err := s.extractor.ExtractSections(ctx, doc.Path, doc.Extension)
	if err != nil {
		s.logger.Warn("Document processing failed",
			zap.String("document_id", doc.ID),
			zap.String("filename", doc.FileName),
			zap.Error(err),
		)
		if err := s.docs.UpdateStatus(ctx, doc.ID, models.DocumentStatusFailed); err != nil {
			s.logger.Error("Failed to mark document failed",
				zap.String("document_id", doc.ID),
				zap.Error(err),
			)
		}
		return
	}

	sections := make([]models.Section, len(extracted))
	for i, sec := range extracted {
		sections[i] = models.Section{
			DocumentID: doc.ID,
			Title:      sec.Title,
			Text:       sec.Text,
			Ordinal:    i,
		}
	}

	if err := s.sections.Publish(ctx, doc.ID, sections); err != nil {
		s.logger.Error("Failed to publish sections",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)
		if err := s.docs.UpdateStatus(ctx, doc.ID, models.DocumentStatusFailed); err != nil {
			s.logger.Error("Failed to mark document failed",
				zap.String("document_id", doc.ID),
				zap.Error(err),
			)
		}
		return
	}

	s.notifyChange()
	s.logger.Info("Document processed",
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.FileName),
		zap.Int("sections", len(sections)),
	)
}

// ReingestAll processes every unprocessed or failed document; already
// processed documents are skipped unless force is set. Idempotent when the
// corpus has not changed.
func (s *KnowledgeService) ReingestAll(ctx context.Context, force bool) error {
	var (
		docs []*models.Document
		err  error
	)
	if force {
		docs, err = s.docs.List(ctx)
	} else {
		docs, err = s.docs.ListByStatus(ctx,
			models.DocumentStatusUnprocessed, models.DocumentStatusFailed)
	}
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, doc := range docs {
		id := doc.ID
		g.Go(func() error {
			s.Ingest(gctx, id)
			return nil
		})
	}
	return g.Wait()
}

// List returns all documents whose content file is still present, newest
// first. A metadata record without a live content file is excluded.
func (s *KnowledgeService) List(ctx context.Context) ([]*models.Document, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, err
	}

	live := make([]*models.Document, 0, len(docs))
	for _, doc := range docs {
		if _, err := os.Stat(doc.Path); err != nil {
			s.logger.Warn("Document content file missing, excluded from listing",
				zap.String("document_id", doc.ID),
				zap.String("path", doc.Path),
			)
			continue
		}
		live = append(live, doc)
	}
	return live, nil
}

// Delete removes the document's metadata, sections, and stored content
// together.
func (s *KnowledgeService) Delete(ctx context.Context, id string) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove content file",
			zap.String("document_id", id),
			zap.String("path", doc.Path),
			zap.Error(err),
		)
	}

	s.notifyChange()
	s.logger.Info("Document deleted", zap.String("document_id", id))
	return nil
}

// Summary describes a processed document. Documents that have not been
// successfully processed have no summary.
func (s *KnowledgeService) Summary(ctx context.Context, id string) (*dto.DocumentSummaryResponse, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.DocumentStatusProcessed {
		return nil, fmt.Errorf("%w: document %s has not been processed", models.ErrNotFound, id)
	}

	sections, err := s.sections.ListByDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(sections))
	textLength := 0
	for _, sec := range sections {
		titles = append(titles, sec.Title)
		textLength += len(sec.Text)
	}

	return &dto.DocumentSummaryResponse{
		ID:            doc.ID,
		FileName:      doc.FileName,
		Description:   doc.Description,
		Category:      doc.Category,
		UploadTime:    doc.UploadTime.Format(time.RFC3339),
		SectionCount:  len(sections),
		SectionTitles: titles,
		TextLength:    textLength,
	}, nil
}

// HasProcessed reports whether any document has ever been processed.
func (s *KnowledgeService) HasProcessed(ctx context.Context) (bool, error) {
	return s.docs.HasProcessed(ctx)
}

// nextDocumentID derives an id from the upload timestamp, strictly
// increasing so two uploads within the same instant still get distinct ids.
func (s *KnowledgeService) nextDocumentID() string {
	for {
		now := time.Now().UnixNano()
		last := s.lastID.Load()
		if now <= last {
			now = last + 1
		}
		if s.lastID.CompareAndSwap(last, now) {
			return strconv.FormatInt(now, 10)
		}
	}
}
