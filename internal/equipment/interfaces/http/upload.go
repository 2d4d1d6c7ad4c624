package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"equipment-api/internal/audit"
	application "equipment-api/internal/equipment/application"
	"equipment-api/internal/observability/metrics"
)

const defaultMaxUploadBytes = 32 << 20

// UploadHandler ingests ';'-delimited CSV uploads at /equipment/upload.
type UploadHandler struct {
	service  *application.Service
	auditor  audit.Logger
	logger   *log.Logger
	maxBytes int64
}

// NewUploadHandler constructs an upload handler. The auditor may be nil.
func NewUploadHandler(service *application.Service, auditor audit.Logger, logger *log.Logger, maxBytes int64) (*UploadHandler, error) {
	if service == nil {
		return nil, errors.New("upload handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &UploadHandler{service: service, auditor: auditor, logger: logger, maxBytes: maxBytes}, nil
}

// ServeHTTP handles POST /equipment/upload.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "The file key 'file' must be sent")
		return
	}
	defer file.Close()

	staged, cleanup, err := h.stage(file, header.Filename)
	if err != nil {
		h.logger.Printf("equipment upload: stage error: %v", err)
		respondMessage(w, http.StatusBadRequest, "Unable to stage the uploaded file")
		return
	}
	defer cleanup()

	dataset, err := parseStaged(staged)
	if err != nil {
		metrics.ObserveIngest(metrics.ResultError, time.Since(start).Seconds())
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.Ingest(r.Context(), dataset)
	if err != nil {
		metrics.ObserveIngest(metrics.ResultError, time.Since(start).Seconds())
		h.logger.Printf("equipment upload: rollback executed: %v", err)
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start).Seconds())
	metrics.AddIngestRows(metrics.RowActionInsert, summary.Inserted)
	metrics.AddIngestRows(metrics.RowActionUpdate, summary.Updated)
	h.recordAudit(r, header.Filename, summary)

	h.logger.Printf("equipment upload: processed %q (%d inserted, %d updated)", header.Filename, summary.Inserted, summary.Updated)
	respondMessage(w, http.StatusOK, "File successfully uploaded and processed")
}

// stage copies the upload into a request-scoped temp directory. The cleanup
// func removes the directory and must run on every exit path.
func (h *UploadHandler) stage(file io.Reader, filename string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "equipment-upload-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	name := filepath.Base(filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload.csv"
	}
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		cleanup()
		return "", nil, err
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

func parseStaged(path string) (application.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return application.Dataset{}, err
	}
	defer f.Close()
	return application.ParseCSV(f)
}

func (h *UploadHandler) recordAudit(r *http.Request, filename string, summary application.Summary) {
	if h.auditor == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{
		"filename": filename,
		"inserted": summary.Inserted,
		"updated":  summary.Updated,
	})
	entry := audit.Entry{
		Action:       audit.ActionUpload,
		ResourceType: "equipment_readings",
		ResourceID:   filename,
		Metadata:     meta,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}
	if err := h.auditor.Log(r.Context(), entry); err != nil {
		h.logger.Printf("equipment upload: audit log error: %v", err)
	}
}
