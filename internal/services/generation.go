package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"flashdeck-backend/internal/cardparse"
	"flashdeck-backend/internal/logger"
	"flashdeck-backend/internal/metrics"
	"flashdeck-backend/internal/models"
)

const (
	SourceText  = "text"
	SourcePDF   = "pdf"
	SourceVideo = "video"

	noCardsMessage = "AI processed the text, but no flashcards could be generated."
)

// GenerationService turns source text into flashcards in one of the
// caller's decks.
type GenerationService struct {
	decks     *DeckService
	completer Completer
	files     *FileExtractService
	videos    VideoTextSource
}

func NewGenerationService(decks *DeckService, completer Completer, files *FileExtractService, videos VideoTextSource) *GenerationService {
	return &GenerationService{
		decks:     decks,
		completer: completer,
		files:     files,
		videos:    videos,
	}
}

// ValidateText checks a generation request without running it.
func (s *GenerationService) ValidateText(ctx context.Context, userID uuid.UUID, req *models.GenerateRequest) error {
	req.Text = strings.TrimSpace(req.Text)
	if err := validateStruct(*req); err != nil {
		return err
	}
	_, err := s.decks.ownedDeck(ctx, userID, req.DeckID)
	return err
}

// Generate validates req, confirms the deck belongs to userID, asks the
// completer for cards and stores what parses. Zero usable cards is a
// success with Created == 0.
func (s *GenerationService) Generate(ctx context.Context, userID uuid.UUID, source string, req models.GenerateRequest) (*models.GenerationResult, error) {
	if err := s.ValidateText(ctx, userID, &req); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With("deck_id", req.DeckID, "source", source)

	raw, err := s.completer.Complete(ctx, BuildFlashcardPrompt(req.Text))
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues(source, "completion_error").Inc()
		log.Error("completion failed", "error", err)
		return nil, &UpstreamError{Message: "AI service failed to generate flashcards", Err: err}
	}

	cards, err := cardparse.Parse(raw)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues(source, "parse_error").Inc()
		var perr *cardparse.ParseError
		if errors.As(err, &perr) {
			log.Warn("model output could not be parsed", "reason", perr.Message, "snippet", perr.Snippet)
		}
		return nil, &UpstreamError{Message: "AI response could not be turned into flashcards", Err: err}
	}

	if len(cards) == 0 {
		metrics.GenerationsTotal.WithLabelValues(source, "empty").Inc()
		return &models.GenerationResult{Created: 0, Message: noCardsMessage}, nil
	}

	created, err := s.decks.addGeneratedCards(ctx, userID, req.DeckID, cards)
	if err != nil {
		return nil, err
	}

	metrics.GenerationsTotal.WithLabelValues(source, "success").Inc()
	metrics.GeneratedCardsTotal.Add(float64(created))
	log.Info("flashcards generated", "parsed", len(cards), "created", created)

	return &models.GenerationResult{
		Created: created,
		Message: fmt.Sprintf("Successfully generated and saved %d flashcards!", created),
	}, nil
}

// GenerateFromPDF extracts the upload's text and generates from it.
func (s *GenerationService) GenerateFromPDF(ctx context.Context, userID, deckID uuid.UUID, r io.ReaderAt, size int64, contentType string) (*models.GenerationResult, error) {
	if _, err := s.decks.ownedDeck(ctx, userID, deckID); err != nil {
		return nil, err
	}

	text, err := s.files.ExtractPDF(ctx, r, size, contentType)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, userID, SourcePDF, models.GenerateRequest{DeckID: deckID, Text: text})
}

// GenerateFromVideo uses the video's captions, or its description when it
// has none, as source text.
func (s *GenerationService) GenerateFromVideo(ctx context.Context, userID, deckID uuid.UUID, req models.GenerateVideoRequest) (*models.GenerationResult, error) {
	req.URL = strings.TrimSpace(req.URL)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.decks.ownedDeck(ctx, userID, deckID); err != nil {
		return nil, err
	}

	text, err := s.videos.Text(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, userID, SourceVideo, models.GenerateRequest{DeckID: deckID, Text: text})
}
