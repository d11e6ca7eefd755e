package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/internal/models"
	"github.com/Harpreetsingh-Developer/Ai-Calling-Agent/pkg/config"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// InsufficientAnswer is the non-error outcome when nothing in the corpus
// matches the question well enough.
const InsufficientAnswer = "I don't have enough information to answer that. " +
	"Please try rephrasing the question or add relevant documents to the knowledge base."

// IndexedSection is one retrieval unit of the in-memory index.
type IndexedSection struct {
	DocumentID string
	FileName   string
	Category   string
	Title      string
	Text       string
	terms      map[string]struct{}
}

// Query is a pre-processed question: its distinct terms and classified type.
type Query struct {
	Terms []string
	Type  models.QuestionType
}

// Scorer is the replaceable relevance strategy: it maps a query and a
// section to a raw score, higher is better, zero means no match.
type Scorer interface {
	Score(q Query, sec *IndexedSection) float64
}

// overlapScorer scores by lexical term overlap, boosted when the section's
// document category matches the classified question type.
type overlapScorer struct {
	categoryBoost float64
}

func (s overlapScorer) Score(q Query, sec *IndexedSection) float64 {
	if len(q.Terms) == 0 {
		return 0
	}
	matched := 0
	for _, term := range q.Terms {
		if _, ok := sec.terms[term]; ok {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	score := float64(matched) / float64(len(q.Terms))
	if sec.Category == string(q.Type) {
		score *= s.categoryBoost
	}
	return score
}

// RetrievalService answers free-text questions against the section corpus.
// Its index is built lazily on first use and after any corpus change;
// concurrent cold-start queries share a single build, and queries during a
// rebuild are served from the previous index without blocking.
type RetrievalService struct {
	sections SectionStore
	cfg      *config.KnowledgeConfig
	scorer   Scorer
	logger   *zap.Logger

	group singleflight.Group
	index atomic.Pointer[[]IndexedSection]
	dirty atomic.Bool
}

func NewRetrievalService(sections SectionStore, cfg *config.KnowledgeConfig, logger *zap.Logger) *RetrievalService {
	return &RetrievalService{
		sections: sections,
		cfg:      cfg,
		scorer:   overlapScorer{categoryBoost: 1.5},
		logger:   logger,
	}
}

// SetScorer swaps the relevance strategy. Intended for configuration at
// startup, not concurrent use.
func (s *RetrievalService) SetScorer(scorer Scorer) {
	s.scorer = scorer
}

// Invalidate marks the index stale; the next query triggers a rebuild.
func (s *RetrievalService) Invalidate() {
	s.dirty.Store(true)
}

// Answer produces a KnowledgeAnswer for the question. An empty or poorly
// matching corpus is not an error: the answer carries the (low) computed
// confidence and the canned insufficient-information text.
func (s *RetrievalService) Answer(ctx context.Context, question string) (*models.KnowledgeAnswer, error) {
	query := Query{
		Terms: tokenize(question),
		Type:  ClassifyQuestion(question),
	}

	index, err := s.currentIndex(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		sec   *IndexedSection
		score float64
	}
	var candidates []scored
	for i := range index {
		if score := s.scorer.Score(query, &index[i]); score > 0 {
			candidates = append(candidates, scored{sec: &index[i], score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > s.cfg.TopSections {
		candidates = candidates[:s.cfg.TopSections]
	}

	confidence := 0.0
	if len(candidates) > 0 {
		confidence = saturate(candidates[0].score)
	}

	if confidence < s.cfg.ConfidenceThreshold {
		s.logger.Info("Question below confidence threshold",
			zap.String("question_type", string(query.Type)),
			zap.Float64("confidence", confidence),
		)
		return &models.KnowledgeAnswer{
			Answer:       InsufficientAnswer,
			Confidence:   confidence,
			Sources:      []string{},
			QuestionType: query.Type,
		}, nil
	}

	var (
		parts   []string
		sources []string
	)
	for _, cand := range candidates {
		parts = append(parts, cand.sec.Text)
		sources = append(sources, fmt.Sprintf("%s - %s", cand.sec.FileName, cand.sec.Title))
	}

	s.logger.Info("Question answered",
		zap.String("question_type", string(query.Type)),
		zap.Float64("confidence", confidence),
		zap.Strings("sources", sources),
	)
	return &models.KnowledgeAnswer{
		Answer:       strings.Join(parts, "\n\n"),
		Confidence:   confidence,
		Sources:      sources,
		QuestionType: query.Type,
	}, nil
}

// currentIndex returns a usable index: fresh if available, stale while a
// rebuild is in flight, built synchronously on a cold start.
func (s *RetrievalService) currentIndex(ctx context.Context) ([]IndexedSection, error) {
	if idx := s.index.Load(); idx != nil {
		if s.dirty.Load() {
			go func() {
				if _, err := s.rebuild(context.Background()); err != nil {
					s.logger.Warn("Index rebuild failed, serving stale index", zap.Error(err))
				}
			}()
		}
		return *idx, nil
	}

	return s.rebuild(ctx)
}

// rebuild is single-flighted: concurrent callers share one build.
func (s *RetrievalService) rebuild(ctx context.Context) ([]IndexedSection, error) {
	v, err, _ := s.group.Do("index", func() (interface{}, error) {
		s.dirty.Store(false)
		rows, err := s.sections.ListRetrievable(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: knowledge store unreachable: %v", models.ErrServiceUnavailable, err)
		}

		index := make([]IndexedSection, 0, len(rows))
		for _, row := range rows {
			sec := IndexedSection{
				DocumentID: row.DocumentID,
				FileName:   row.FileName,
				Category:   row.Category,
				Title:      row.Title,
				Text:       row.Text,
				terms:      make(map[string]struct{}),
			}
			for _, term := range tokenize(row.Title + " " + row.Text) {
				sec.terms[term] = struct{}{}
			}
			index = append(index, sec)
		}

		s.index.Store(&index)
		s.logger.Info("Retrieval index built", zap.Int("sections", len(index)))
		return index, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]IndexedSection), nil
}

// saturate maps a raw score into [0,1]; a clamped linear ramp so moderate
// overlap already clears the default threshold.
func saturate(score float64) float64 {
	conf := score * 1.25
	if conf > 1 {
		return 1
	}
	if conf < 0 {
		return 0
	}
	return conf
}

var questionCues = map[models.QuestionType][]string{
	models.QuestionTypeServices:   {"service", "services", "offer", "offers", "provide", "product", "products", "solutions"},
	models.QuestionTypePricing:    {"price", "prices", "pricing", "cost", "costs", "charge", "charges", "fee", "fees", "rate", "rates", "pay", "much"},
	models.QuestionTypeContact:    {"contact", "phone", "email", "address", "reach", "location", "office", "support"},
	models.QuestionTypeTechnology: {"technology", "technologies", "tech", "platform", "stack", "software", "built", "ai"},
}

var questionTypeOrder = []models.QuestionType{
	models.QuestionTypeServices,
	models.QuestionTypePricing,
	models.QuestionTypeContact,
	models.QuestionTypeTechnology,
}

// ClassifyQuestion picks the question type with the most lexical cue hits;
// ties resolve in a fixed priority order, no hits means general.
func ClassifyQuestion(question string) models.QuestionType {
	words := make(map[string]struct{})
	for _, w := range splitWords(question) {
		words[w] = struct{}{}
	}

	best := models.QuestionTypeGeneral
	bestHits := 0
	for _, qt := range questionTypeOrder {
		hits := 0
		for _, cue := range questionCues[qt] {
			if _, ok := words[cue]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best = qt
			bestHits = hits
		}
	}
	return best
}

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "can", "could",
		"do", "does", "for", "from", "has", "have", "how", "i", "in", "is",
		"it", "its", "me", "much", "my", "of", "on", "or", "our", "please",
		"tell", "that", "the", "their", "there", "they", "this", "to", "us",
		"was", "we", "were", "what", "when", "where", "which", "who", "why",
		"will", "with", "you", "your",
	} {
		stopwords[w] = struct{}{}
	}
}

// tokenize lowercases, strips punctuation, and drops stopwords, returning
// distinct terms.
func tokenize(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, w := range splitWords(text) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
