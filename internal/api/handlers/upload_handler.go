package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Conversa/internal/config"
	objectclient "github.com/markdave123-py/Conversa/internal/core/object-client"
	sessionstore "github.com/markdave123-py/Conversa/internal/core/session-store"
	"github.com/markdave123-py/Conversa/internal/models"
	"github.com/markdave123-py/Conversa/internal/pkg/logger"
	"github.com/markdave123-py/Conversa/internal/services"
)

// File states reported back to the client after an upload round-trip.
const (
	fileIndexed     = "indexed"     // searchable now
	fileUnconfirmed = "unconfirmed" // uploaded, indexing not confirmed in budget
	fileUnusable    = "unusable"    // indexing failed or attach rejected
)

type UploadHandler struct {
	sessions      sessionstore.Store
	objects       objectclient.ObjectClient
	importer      *services.FileImportService
	indexes       *services.ContentIndexService
	conversations *services.ConversationService
	cfg           *config.Config
	log           logger.ILogger
}

func NewUploadHandler(
	sessions sessionstore.Store,
	objects objectclient.ObjectClient,
	importer *services.FileImportService,
	indexes *services.ContentIndexService,
	conversations *services.ConversationService,
	cfg *config.Config,
	log logger.ILogger,
) *UploadHandler {
	return &UploadHandler{
		sessions:      sessions,
		objects:       objects,
		importer:      importer,
		indexes:       indexes,
		conversations: conversations,
		cfg:           cfg,
		log:           log,
	}
}

type fileResult struct {
	FileID   string `json:"file_id,omitempty"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

type uploadResponse struct {
	ConversationID string       `json:"conversation_id,omitempty"`
	ContentIndexID string       `json:"content_index_id"`
	Files          []fileResult `json:"files"`
}

// Upload stages every multipart file in object storage, imports it into the
// platform's file store, attaches it to the session's content index, and
// waits for indexing before answering. Per-file indexing problems degrade to
// a reported status; only index creation itself is fatal.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, ok := sessionFromRequest(r, h.sessions)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	fileHeaders := r.MultipartForm.File["file"]
	if len(fileHeaders) == 0 {
		http.Error(w, "no files provided", http.StatusBadRequest)
		return
	}
	category := models.FileCategory(r.FormValue("category"))
	if category == "" {
		category = models.CategoryFileSearch
	}

	// Conversation is created lazily here so the index can be named after
	// it. Upload still works without one; the index gets a generated name.
	convID, err := h.conversations.GetOrCreate(ctx, sess)
	if err != nil {
		h.log.Warn("upload", "proceeding without conversation", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		convID = ""
	}

	indexID, err := h.indexes.GetOrCreate(ctx, convID, sess)
	if err != nil {
		http.Error(w, fmt.Sprintf("content index unavailable: %v", err), http.StatusBadGateway)
		return
	}

	results := make([]fileResult, len(fileHeaders))
	staged := make([]models.FileHandle, len(fileHeaders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, fh := range fileHeaders {
		g.Go(func() error {
			results[i], staged[i] = h.processOne(gctx, sess.UserID, indexID, fh, category)
			return nil
		})
	}
	_ = g.Wait()

	for _, handle := range staged {
		if handle.ID == "" {
			continue
		}
		sess.StagedFiles[handle.ID] = models.StagedFile{
			Filename:    handle.Filename,
			ContentType: handle.ContentType,
			Category:    handle.Category,
		}
	}
	if err := h.sessions.Save(ctx, sess); err != nil {
		h.log.Error("upload", "session not persisted after upload", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		ConversationID: convID,
		ContentIndexID: indexID,
		Files:          results,
	})
}

// processOne runs the stage→import→attach→await pipeline for one file and
// folds every failure mode into a reportable per-file status.
func (h *UploadHandler) processOne(ctx context.Context, userID, indexID string, header *multipart.FileHeader, category models.FileCategory) (fileResult, models.FileHandle) {
	filename := header.Filename
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	file, err := header.Open()
	if err != nil {
		return fileResult{Filename: filename, Status: fileUnusable, Detail: "unreadable upload"}, models.FileHandle{}
	}
	defer file.Close()

	key := objectclient.BuildKey(h.cfg.UploadPrefix, userID, filename)
	if _, err := h.objects.UploadFile(ctx, h.cfg.BucketName, key, file, contentType); err != nil {
		return fileResult{Filename: filename, Status: fileUnusable, Detail: fmt.Sprintf("staging failed: %v", err)}, models.FileHandle{}
	}

	handle, err := h.importer.Import(ctx, key, filename, contentType, category)
	if err != nil {
		return fileResult{Filename: filename, Status: fileUnusable, Detail: fmt.Sprintf("import failed: %v", err)}, models.FileHandle{}
	}

	result := h.attachAndAwait(ctx, indexID, handle)
	return result, handle
}

// attachAndAwait submits the handle to the index and blocks until indexing
// resolves. Failure and timeout both keep the file registered; they only
// change what the client is told about searchability.
func (h *UploadHandler) attachAndAwait(ctx context.Context, indexID string, handle models.FileHandle) fileResult {
	if _, err := h.indexes.Attach(ctx, indexID, handle); err != nil {
		return fileResult{FileID: handle.ID, Filename: handle.Filename, Status: fileUnusable, Detail: fmt.Sprintf("attach failed: %v", err)}
	}

	if _, err := h.indexes.AwaitIndexed(ctx, indexID, handle, 0, 0); err != nil {
		var failed *models.IndexingFailedError
		var timedOut *models.IndexingTimeoutError
		switch {
		case errors.As(err, &failed):
			return fileResult{FileID: handle.ID, Filename: handle.Filename, Status: fileUnusable, Detail: string(failed.Status)}
		case errors.As(err, &timedOut):
			return fileResult{FileID: handle.ID, Filename: handle.Filename, Status: fileUnconfirmed, Detail: timedOut.Elapsed.Round(time.Second).String()}
		default:
			return fileResult{FileID: handle.ID, Filename: handle.Filename, Status: fileUnconfirmed, Detail: err.Error()}
		}
	}

	return fileResult{FileID: handle.ID, Filename: handle.Filename, Status: fileIndexed}
}

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// Presign issues a time-limited URL the browser can PUT the blob to
// directly, skipping the gateway for the bytes.
func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromRequest(r, h.sessions)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Filename == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	key := objectclient.BuildKey(h.cfg.UploadPrefix, sess.UserID, req.Filename)
	url, err := h.objects.PresignPut(r.Context(), h.cfg.BucketName, key, req.ContentType, 15*time.Minute)
	if err != nil {
		http.Error(w, fmt.Sprintf("presign failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"url":          url,
		"key":          key,
		"content_type": req.ContentType,
		"expires_in":   int((15 * time.Minute).Seconds()),
	})
}

type ingestRequest struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Category    string `json:"category"`
}

// Ingest completes the presigned-upload flow: the blob is already in object
// storage, so this imports it, attaches it to the index, and waits for
// indexing just like a direct upload would.
func (h *UploadHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, ok := sessionFromRequest(r, h.sessions)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" || req.Filename == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	category := models.FileCategory(req.Category)
	if category == "" {
		category = models.CategoryFileSearch
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	convID, err := h.conversations.GetOrCreate(ctx, sess)
	if err != nil {
		convID = ""
	}
	indexID, err := h.indexes.GetOrCreate(ctx, convID, sess)
	if err != nil {
		http.Error(w, fmt.Sprintf("content index unavailable: %v", err), http.StatusBadGateway)
		return
	}

	handle, err := h.importer.Import(ctx, req.Key, req.Filename, req.ContentType, category)
	if err != nil {
		http.Error(w, fmt.Sprintf("import failed: %v", err), http.StatusBadGateway)
		return
	}

	result := h.attachAndAwait(ctx, indexID, handle)

	sess.StagedFiles[handle.ID] = models.StagedFile{
		Filename:    handle.Filename,
		ContentType: handle.ContentType,
		Category:    handle.Category,
	}
	if err := h.sessions.Save(ctx, sess); err != nil {
		h.log.Error("upload", "session not persisted after ingest", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		ConversationID: convID,
		ContentIndexID: indexID,
		Files:          []fileResult{result},
	})
}
