package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"nstrack/internal/importer"
	"nstrack/internal/importlog"
	"nstrack/internal/mount"
)

// simple lock so only one manual import runs at a time
var importBusy = make(chan struct{}, 1)

type importResp struct {
	FoundFiles int      `json:"found_files"`
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Errors     []string `json:"errors,omitempty"`
	Message    string   `json:"message"`
}

type uploadResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
	Imported   int     `json:"imported"`
	Duplicates int     `json:"duplicates"`
	Failed     int     `json:"failed"`
	IDs        []int64 `json:"ids,omitempty"`
}

// POST /api/import  -> run a single scan now
func (s *Server) handleImportNow(w http.ResponseWriter, r *http.Request) {
	if s.im == nil {
		writeError(w, http.StatusServiceUnavailable, "importer not available")
		return
	}
	select {
	case importBusy <- struct{}{}:
		defer func() { <-importBusy }()
	default:
		writeError(w, http.StatusConflict, "import already running")
		return
	}

	importlog.Printf("import: triggered via web")
	sum, err := s.im.ScanOnce()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var message string
	switch {
	case sum.FoundFiles == 0:
		message = "No SportsTracker files found. Check that the phone memory card is mounted."
	case sum.Imported == 0 && sum.Duplicates > 0 && len(sum.Errors) == 0:
		message = fmt.Sprintf("Found %d files, but all were duplicates (already imported).", sum.FoundFiles)
	case sum.Imported == 0 && len(sum.Errors) > 0:
		message = fmt.Sprintf("Found %d files, but failed to import any. Check logs for details.", sum.FoundFiles)
	case sum.Duplicates > 0:
		message = fmt.Sprintf("Import completed: %d new tracks imported, %d duplicates skipped from %d files.", sum.Imported, sum.Duplicates, sum.FoundFiles)
	default:
		message = fmt.Sprintf("Import completed: %d new tracks imported from %d files.", sum.Imported, sum.FoundFiles)
	}

	writeJSON(w, http.StatusOK, importResp{
		FoundFiles: sum.FoundFiles,
		Imported:   sum.Imported,
		Duplicates: sum.Duplicates,
		Errors:     sum.Errors,
		Message:    message,
	})
}

// GET /api/logs  -> Server-Sent Events (live import logs)
func (s *Server) handleLogsSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flush := func() {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}

	// send a small snapshot first so the pane isn't empty
	for _, line := range importlog.Snapshot(50) {
		_, _ = io.WriteString(w, "data: "+line+"\n\n")
	}
	flush()

	ch := importlog.Subscribe()
	defer importlog.Unsubscribe(ch)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case line := <-ch:
			_, _ = io.WriteString(w, "data: "+line+"\n\n")
			flush()
		case <-ticker.C:
			// keep-alive comment (helps proxies/browsers keep the connection)
			_, _ = io.WriteString(w, ": ping\n\n")
			flush()
		}
	}
}

// POST /api/upload (multipart, field "files")
func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	if s.im == nil {
		writeError(w, http.StatusServiceUnavailable, "importer not available")
		return
	}
	// Parse multipart form (32MB max)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		importlog.Printf("upload: parse form error: %v", err)
		writeUploadError(w, "Failed to parse upload form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeUploadError(w, "No files uploaded")
		return
	}
	importlog.Printf("upload: processing %d files", len(files))

	resp := uploadResponse{Success: true}
	for _, fh := range files {
		if !mount.IsTrackFile(fh.Filename) {
			importlog.Printf("upload: skipping non-SportsTracker file: %s", fh.Filename)
			resp.Failed++
			continue
		}
		file, err := fh.Open()
		if err != nil {
			importlog.Printf("upload: failed to open file %s: %v", fh.Filename, err)
			resp.Failed++
			continue
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			importlog.Printf("upload: failed to read file %s: %v", fh.Filename, err)
			resp.Failed++
			continue
		}

		id, err := s.im.IngestUpload(fh.Filename, data)
		switch {
		case errors.Is(err, importer.ErrDuplicate):
			resp.Duplicates++
		case err != nil:
			importlog.Printf("upload: %s: %v", fh.Filename, err)
			resp.Failed++
		default:
			resp.Imported++
			resp.IDs = append(resp.IDs, id)
		}
	}
	resp.Message = fmt.Sprintf("Processed %d files: %d imported, %d duplicates, %d failed",
		len(files), resp.Imported, resp.Duplicates, resp.Failed)
	writeJSON(w, http.StatusOK, resp)
}

func writeUploadError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, uploadResponse{Success: false, Error: message})
}
