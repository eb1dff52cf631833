package webserver

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"

	"pdfconvert/internal/config"
	"pdfconvert/internal/pipeline"
	"pdfconvert/internal/types"
	"pdfconvert/internal/workspace"
)

//go:embed www/*
var wwwFiles embed.FS

const (
	// MaxFormOverhead is allowed on top of the file size for multipart framing
	MaxFormOverhead = 1024 * 1024
	maxFieldSize    = 4096
)

// TemplateData holds data for template rendering
type TemplateData struct {
	Lang      string
	T         Translation
	CSRFToken string
	MaxSize   string
	SizeNote  string
}

// UploadResponse is the JSON body of a successful conversion
type UploadResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
}

type Server struct {
	cfg          config.Config
	orchestrator *pipeline.Orchestrator
	workspace    *workspace.Manager
	csrf         *CSRF
	index        *template.Template
}

func NewServer(cfg config.Config, o *pipeline.Orchestrator, ws *workspace.Manager) (*Server, error) {
	if err := LoadTranslations(); err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}

	index, err := template.ParseFS(wwwFiles, "www/index_template.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index template: %w", err)
	}

	return &Server{
		cfg:          cfg,
		orchestrator: o,
		workspace:    ws,
		csrf:         NewCSRF(cfg.Security.SessionSecret, cfg.Security.TokenTTL),
		index:        index,
	}, nil
}

// Routes returns the complete HTTP handler of the service
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/{$}", CompressionMiddleware(http.HandlerFunc(s.HomeHandler)))
	mux.HandleFunc("/upload", s.UploadHandler(types.ModeDocx))
	mux.HandleFunc("/upload/spreadsheet", s.UploadHandler(types.ModeSpreadsheet))
	mux.HandleFunc("/download/{token}", s.DownloadHandler)
	mux.HandleFunc("/hint", HintHandler)
	mux.HandleFunc("/healthz", HealthHandler)
	mux.Handle("/www/", http.StripPrefix("/www/", CompressionMiddleware(StaticFileServer())))
	mux.HandleFunc("/favicon.svg", FaviconHandler("www/favicon.svg"))

	return LoggingMiddleware(mux)
}

func (s *Server) HomeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	lang := GetLanguageFromRequest(r)

	token := GetCSRFTokenFromCookie(r)
	if token == "" || s.csrf.Verify(token) != nil {
		var err error

		token, err = s.csrf.Issue()
		if err != nil {
			slog.Error("Error issuing CSRF token", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)

			return
		}

		SetCSRFTokenCookie(w, r, token, s.cfg.Security.TokenTTL)
	}

	data := TemplateData{
		Lang:      lang,
		T:         GetTranslations(lang),
		CSRFToken: token,
		MaxSize:   humanSize(s.cfg.Limits.MaxUploadSize),
	}
	data.SizeNote = strings.ReplaceAll(data.T["max_size_note"], "{max}", data.MaxSize)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := s.index.Execute(w, data); err != nil {
		slog.Error("Error executing template", "error", err)
	}
}

// UploadHandler converts an uploaded PDF to the format of mode
func (s *Server) UploadHandler(mode types.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := slog.With("handler", "UploadHandler", "mode", mode)
		log.Info("Received upload request", "remote_addr", r.RemoteAddr)

		lang := GetLanguageFromRequest(r)

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req, err := s.receiveRequest(w, r, mode)
		if err != nil {
			log.Error("Failed to receive request", "error", err)
			s.writeError(w, err, lang)

			return
		}

		result := s.orchestrator.Run(r.Context(), req)
		if !result.Delivered() {
			s.writeError(w, result.Err, lang)
			return
		}

		writeJSON(w, http.StatusOK, UploadResponse{
			Success:     true,
			Message:     GetTranslation(lang, "upload_success"),
			DownloadURL: "/download/" + url.PathEscape(result.Token),
			Filename:    result.DisplayName,
		})

		log.Info("Request processed", "filename", result.DisplayName, "token", result.Token)
	}
}

// DownloadHandler serves a converted file by its download token
func (s *Server) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	log := slog.With("handler", "DownloadHandler")
	lang := GetLanguageFromRequest(r)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := r.PathValue("token")

	d, err := s.workspace.Resolve(token)
	if err != nil {
		log.Warn("Download rejected", "token", token, "error", err)
		WriteErrorResponseWithLang(w, types.NewError(types.ReasonNotFound, err), lang)

		return
	}

	status, err := s.sendResponse(w, r, d)
	if err != nil {
		log.Error("Failed to send download", "token", token, "error", err)
		WriteErrorResponseWithLang(w, types.NewError(types.ReasonNotFound, err), lang)

		return
	}

	// partial and not-modified responses leave the file for a full download
	if s.cfg.Storage.DeleteAfterDownload && r.Method == http.MethodGet && status == http.StatusOK {
		s.workspace.Consume(token)
	}

	log.Info("Download served", "token", token, "filename", d.DisplayName)
}

// sendResponse streams the download and returns the status it was served with
func (s *Server) sendResponse(w http.ResponseWriter, r *http.Request, d workspace.Download) (int, error) {
	file, err := os.Open(d.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to open result file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat result file: %w", err)
	}

	w.Header().Set("Content-Type", s.orchestrator.ContentType(d.Token))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.DisplayName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")

	rec := &statusRecorder{ResponseWriter: w}
	http.ServeContent(rec, r, d.DisplayName, info.ModTime(), file)

	if rec.status == 0 {
		rec.status = http.StatusOK
	}

	return rec.status, nil
}

// receiveRequest streams the multipart body into memory without touching
// disk, since nothing may be persisted before validation.
func (s *Server) receiveRequest(w http.ResponseWriter, r *http.Request, mode types.Mode) (types.UploadRequest, error) {
	req := types.UploadRequest{Mode: mode}
	maxSize := s.cfg.Limits.MaxUploadSize

	if r.ContentLength > maxSize+MaxFormOverhead {
		return req, types.Errorf(types.ReasonTooLarge, "declared content length %d", r.ContentLength)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+MaxFormOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		return req, types.Errorf(types.ReasonBadRequest, "form parsing error: %w", err)
	}

	var (
		submittedToken = r.Header.Get(CSRFHeaderName)
		haveFile       bool
	)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return req, bodyError(err)
		}

		switch part.FormName() {
		case CSRFFieldName:
			value, err := io.ReadAll(io.LimitReader(part, maxFieldSize))
			if err != nil {
				return req, bodyError(err)
			}

			if submittedToken == "" {
				submittedToken = strings.TrimSpace(string(value))
			}
		case "file":
			if haveFile {
				break
			}

			req.FileName = part.FileName()
			if strings.TrimSpace(req.FileName) == "" {
				return req, types.Errorf(types.ReasonBadRequest, "file part has no filename")
			}

			req.Data, err = io.ReadAll(io.LimitReader(part, maxSize+1))
			if err != nil {
				return req, bodyError(err)
			}

			req.DeclaredSize = int64(len(req.Data))
			haveFile = true

			if req.DeclaredSize > maxSize {
				return req, types.Errorf(types.ReasonTooLarge, "file exceeds %d bytes", maxSize)
			}
		}

		_ = part.Close()
	}

	if !haveFile {
		return req, types.Errorf(types.ReasonBadRequest, "no file selected")
	}

	if s.cfg.Security.CSRF {
		if err := s.csrf.ValidateCSRFToken(r, submittedToken); err != nil {
			return req, types.NewError(types.ReasonForbidden, err)
		}
	}

	return req, nil
}

func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return types.NewError(types.ReasonTooLarge, err)
	}

	return types.Errorf(types.ReasonBadRequest, "file retrieval error: %w", err)
}

func (s *Server) writeError(w http.ResponseWriter, err error, lang string) {
	resp := CategorizeErrorWithLang(err, lang)
	resp.Error = strings.ReplaceAll(resp.Error, "{max}", humanSize(s.cfg.Limits.MaxUploadSize))

	writeErrorBody(w, resp)
}

// HealthHandler reports liveness
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func StaticFileServer() http.Handler {
	subFS, err := fs.Sub(wwwFiles, "www")
	if err != nil {
		slog.Error("Failed to create sub-filesystem", "error", err)
		return http.FileServer(http.FS(wwwFiles))
	}

	return http.FileServer(http.FS(subFS))
}

func FaviconHandler(filePath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := wwwFiles.ReadFile(filePath)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=31536000") // 1 year

		_, _ = w.Write(data)
	}
}

// HintHandler serves hint text for the UI tooltips
func HintHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hintKey := r.URL.Query().Get("key")
	if hintKey == "" {
		http.Error(w, "Hint key is required", http.StatusBadRequest)
		return
	}

	lang := GetLanguageFromRequest(r)

	hintText := GetTranslation(lang, hintKey)
	if hintText == hintKey || !strings.HasPrefix(hintKey, "hint_") {
		hintText = GetTranslation(lang, "hint_unavailable")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(hintText))
}

func humanSize(n int64) string {
	const mib = 1024 * 1024

	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}

	if n >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	}

	return fmt.Sprintf("%dB", n)
}
