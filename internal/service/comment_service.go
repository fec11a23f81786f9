package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/domain"
	"github.com/saos/service-desk/internal/events"
	"github.com/saos/service-desk/internal/repository"
	apperrors "github.com/saos/service-desk/pkg/util/errorutil"
)

const commentPreviewRunes = 50

// CommentService attaches notes to requests.
type CommentService struct {
	requests   repository.RequestRepository
	comments   repository.CommentRepository
	history    repository.HistoryRepository
	tx         repository.TxManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      Clock
}

// CommentDependencies bundles collaborators for comments.
type CommentDependencies struct {
	RequestRepo repository.RequestRepository
	CommentRepo repository.CommentRepository
	HistoryRepo repository.HistoryRepository
	TxManager   repository.TxManager
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Clock       Clock
}

// AddCommentInput describes a new comment.
type AddCommentInput struct {
	RequestID int64
	AuthorID  int64
	Body      string
	Internal  bool
	IPAddress *string
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	return &CommentService{
		requests:   deps.RequestRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		tx:         deps.TxManager,
		dispatcher: deps.Dispatcher,
		logger:     nopIfNil(deps.Logger),
		clock:      deps.Clock,
	}
}

// Add stores the comment and its COMENTARIO history entry together.
func (s *CommentService) Add(ctx context.Context, in AddCommentInput) (*domain.Comment, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("comentário obrigatório", map[string]any{"fields": []string{"comentario"}})
	}
	if _, err := s.requests.GetByID(ctx, in.RequestID); err != nil {
		return nil, apperrors.MapError("request", err)
	}

	now := s.clock.now()
	comment := &domain.Comment{
		RequestID: in.RequestID,
		AuthorID:  in.AuthorID,
		Body:      body,
		Internal:  in.Internal,
		CreatedAt: now,
	}
	preview := commentPreview(body)
	err := s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := s.comments.Create(ctx, tx, comment); err != nil {
			return err
		}
		return s.history.Create(ctx, tx, &domain.HistoryEntry{
			RequestID:   in.RequestID,
			UserID:      in.AuthorID,
			Action:      domain.HistoryActionComment,
			Description: "Comentário adicionado: " + preview + "...",
			IPAddress:   in.IPAddress,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, apperrors.MapError("request", err)
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventCommentAdded,
		RequestID: in.RequestID,
		ActorID:   in.AuthorID,
		Timestamp: now,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			Internal:    comment.Internal,
			BodyPreview: preview,
		},
	})
	return comment, nil
}

// List returns comments oldest first. Internal ones are only included for staff.
func (s *CommentService) List(ctx context.Context, requestID int64, includeInternal bool) ([]domain.Comment, error) {
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, apperrors.MapError("request", err)
	}
	items, err := s.comments.ListByRequest(ctx, requestID, includeInternal)
	if err != nil {
		return nil, apperrors.NewStorageError(err)
	}
	return items, nil
}

func commentPreview(body string) string {
	if utf8.RuneCountInString(body) <= commentPreviewRunes {
		return body
	}
	return string([]rune(body)[:commentPreviewRunes])
}
