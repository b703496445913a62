package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/model"
	"github.com/voxquiz/voxquiz-backend/internal/repository"
	"github.com/voxquiz/voxquiz-backend/internal/response"
)

// QuestionService handles catalog management for hosts.
type QuestionService struct {
	questions *repository.QuestionRepository
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions *repository.QuestionRepository, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// GetByID retrieves a question by its UUID.
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return s.questions.GetByID(ctx, id)
}

// List retrieves a page of questions, optionally filtered by category.
func (s *QuestionService) List(ctx context.Context, page, perPage int, category *string) ([]model.Question, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	questions, total, err := s.questions.List(ctx, page, perPage, category)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}

	totalPages := (int(total) + perPage - 1) / perPage
	return questions, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	}, nil
}

// Create adds a question to the catalog. New questions are live immediately.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		Prompt:           req.Prompt,
		Answer:           req.Answer,
		AltAnswers:       req.AltAnswers,
		Category:         req.Category,
		Difficulty:       req.Difficulty,
		BasePoints:       req.BasePoints,
		TimeLimitSeconds: req.TimeLimitSeconds,
		Active:           true,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}
	s.log.Info().Str("question_id", q.ID.String()).Str("category", q.Category).Msg("question created")
	return q, nil
}

// Update replaces a question's fields. Deactivating (active=false) is how a
// question is retired; already-played turns keep their recorded outcome.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	q.Prompt = req.Prompt
	q.Answer = req.Answer
	q.AltAnswers = req.AltAnswers
	q.Category = req.Category
	q.Difficulty = req.Difficulty
	q.BasePoints = req.BasePoints
	q.TimeLimitSeconds = req.TimeLimitSeconds
	q.Active = *req.Active

	if err := s.questions.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Delete removes an unplayed question from the catalog.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questions.Delete(ctx, id)
}
