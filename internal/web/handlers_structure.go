package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/inputsheet/internal/core"
	"github.com/JonMunkholm/inputsheet/internal/logging"
)

// multipartOverhead is allowed on top of the file size limit for the form
// boundaries and headers.
const multipartOverhead = 1 << 20

func (s *Server) handleGetStructure(w http.ResponseWriter, r *http.Request) {
	schema, err := s.service.Structure(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, schema)
}

func (s *Server) handleItemsA(w http.ResponseWriter, r *http.Request) {
	schema, err := s.service.Structure(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	items := schema.ItemsA
	if items == nil {
		items = []core.ItemA{}
	}
	writeJSON(w, r, items)
}

func (s *Server) handleItemsD(w http.ResponseWriter, r *http.Request) {
	schema, err := s.service.Structure(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	fields := schema.ItemsD
	if fields == nil {
		fields = []core.FieldDef{}
	}
	writeJSON(w, r, fields)
}

// handleReplaceStructure stores a manually edited structure document.
func (s *Server) handleReplaceStructure(w http.ResponseWriter, r *http.Request) {
	var schema core.Schema
	if err := decodeJSON(w, r, maxJSONBody, &schema); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.service.ReplaceStructure(r.Context(), schema); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, schema)
}

// handleUploadStructure stages the uploaded spreadsheet in the temp dir and
// replaces the structure with what it describes.
func (s *Server) handleUploadStructure(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(w, r, errFileTooLarge)
			return
		}
		respondError(w, r, errInvalidBody)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		respondError(w, r, errFileTooLarge)
		return
	}

	tempPath, err := s.stageUpload(file, header.Filename)
	if err != nil {
		respondError(w, r, &core.ImportError{Err: err})
		return
	}

	logging.FromContext(r.Context()).Info("structure upload received",
		"file", header.Filename,
		"bytes", header.Size,
	)

	// ImportStructure removes tempPath.
	schema, err := s.service.ImportStructure(r.Context(), tempPath, header.Filename)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, schema)
}

// stageUpload copies src to a new file in the upload temp dir, keeping the
// original extension so the importer can pick the format.
func (s *Server) stageUpload(src io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	tmp, err := os.CreateTemp(s.cfg.Upload.TempDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}
