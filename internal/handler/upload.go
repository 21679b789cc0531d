package handler

import (
	"log"
	"net/http"
	"path/filepath"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/attachment"
)

// maxUploadBytes caps attachment uploads at 10MB.
const maxUploadBytes = 10 << 20

// ServeUpload stores an attachment and returns its opaque content
// reference. The client then sends a message frame carrying the reference.
func ServeUpload(store *attachment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid form data.")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "An attachment file is required.")
			return
		}
		defer file.Close()

		filename := filepath.Base(header.Filename)
		ref, err := store.Save(file, filename)
		if err != nil {
			log.Printf("failed to store attachment: %v", err)
			respondError(w, http.StatusInternalServerError, "Could not store attachment.")
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{
			"ref":      ref,
			"filename": filename,
		})
	}
}
