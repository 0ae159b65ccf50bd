package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"flashdeck-backend/internal/middleware"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/services"
)

// multipartOverhead leaves room for form boundaries and headers around a
// maximum-size file.
const multipartOverhead = 1 << 20

type generationService interface {
	Generate(ctx context.Context, userID uuid.UUID, source string, req models.GenerateRequest) (*models.GenerationResult, error)
	GenerateFromPDF(ctx context.Context, userID, deckID uuid.UUID, r io.ReaderAt, size int64, contentType string) (*models.GenerationResult, error)
	GenerateFromVideo(ctx context.Context, userID, deckID uuid.UUID, req models.GenerateVideoRequest) (*models.GenerationResult, error)
}

type jobService interface {
	Enqueue(ctx context.Context, userID uuid.UUID, req models.GenerateRequest) (*models.Job, error)
	Get(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error)
}

type pdfExtractor interface {
	ExtractPDF(ctx context.Context, r io.ReaderAt, size int64, contentType string) (string, error)
}

type GenerateHandler struct {
	generation generationService
	jobs       jobService
	files      pdfExtractor
}

func NewGenerateHandler(generation generationService, jobs jobService, files pdfExtractor) *GenerateHandler {
	return &GenerateHandler{generation: generation, jobs: jobs, files: files}
}

type generateTextBody struct {
	Text string `json:"text"`
}

// FromText generates cards for the deck in the path and waits for the
// result.
func (h *GenerateHandler) FromText(w http.ResponseWriter, r *http.Request) {
	deckID, ok := pathID(w, r, "id", "deck")
	if !ok {
		return
	}
	var body generateTextBody
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.generation.Generate(r.Context(), middleware.GetUserID(r.Context()), services.SourceText,
		models.GenerateRequest{DeckID: deckID, Text: body.Text})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *GenerateHandler) FromPDF(w http.ResponseWriter, r *http.Request) {
	deckID, ok := pathID(w, r, "id", "deck")
	if !ok {
		return
	}

	file, size, contentType, ok := readPDFUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	result, err := h.generation.GenerateFromPDF(r.Context(), middleware.GetUserID(r.Context()), deckID, file, size, contentType)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *GenerateHandler) FromVideo(w http.ResponseWriter, r *http.Request) {
	deckID, ok := pathID(w, r, "id", "deck")
	if !ok {
		return
	}
	var req models.GenerateVideoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.generation.GenerateFromVideo(r.Context(), middleware.GetUserID(r.Context()), deckID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Enqueue schedules generation on the worker pool. Progress arrives over
// the WebSocket connection.
func (h *GenerateHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	deckID, ok := pathID(w, r, "id", "deck")
	if !ok {
		return
	}
	var body generateTextBody
	if !decodeJSON(w, r, &body) {
		return
	}

	job, err := h.jobs.Enqueue(r.Context(), middleware.GetUserID(r.Context()),
		models.GenerateRequest{DeckID: deckID, Text: body.Text})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func (h *GenerateHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "job")
	if !ok {
		return
	}

	job, err := h.jobs.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ExtractPDF returns the text of an uploaded PDF without generating cards.
func (h *GenerateHandler) ExtractPDF(w http.ResponseWriter, r *http.Request) {
	file, size, contentType, ok := readPDFUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	text, err := h.files.ExtractPDF(r.Context(), file, size, contentType)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

type uploadedFile interface {
	io.ReaderAt
	io.Closer
}

func readPDFUpload(w http.ResponseWriter, r *http.Request) (uploadedFile, int64, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxPDFBytes+multipartOverhead)
	if err := r.ParseMultipartForm(services.MaxPDFBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"file": "File is too large (Max: 10 MB)."}, r))
			return nil, 0, "", false
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return nil, 0, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "Please select a file."}, r))
		return nil, 0, "", false
	}
	return file, header.Size, header.Header.Get("Content-Type"), true
}
