package server

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/jrsteele09/pigmy-admin/internal/errors"
	"github.com/jrsteele09/pigmy-admin/models"
	"github.com/jrsteele09/pigmy-admin/patsanstha"
	"github.com/jrsteele09/pigmy-admin/session"
	"github.com/rs/zerolog/log"
)

// multipartOverhead is headroom above the upload ceiling for form framing.
const multipartOverhead = 1 << 20

// AddAgentHandler creates an agent from the settings form.
func (s *Server) AddAgentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ls, ok := loginSessionFrom(r.Context())
		if !ok {
			redirectSuccess(w, r, RouteLogin)
			return
		}
		back := SectionSettings.Path()
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, back, "Invalid form data")
			return
		}

		message, err := ls.API.AddAgent(r.Context(), models.AgentInput{
			AgentName:    strings.TrimSpace(r.FormValue("agentname")),
			AgentNo:      strings.TrimSpace(r.FormValue("agentno")),
			MobileNumber: strings.TrimSpace(r.FormValue("mobileNumber")),
			Password:     r.FormValue("password"),
		})
		if err != nil {
			handleMutationError(w, r, err, back)
			return
		}
		redirectWithFlash(w, r, back, message)
	}
}

// EditAgentHandler updates an agent. A blank password keeps the current one.
func (s *Server) EditAgentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ls, ok := loginSessionFrom(r.Context())
		if !ok {
			redirectSuccess(w, r, RouteLogin)
			return
		}
		agentNo := r.PathValue("agentno")
		back := withQuery(SectionSettings.Path(), "edit", agentNo)
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, back, "Invalid form data")
			return
		}

		message, err := ls.API.EditAgent(r.Context(), agentNo, models.AgentUpdate{
			AgentName:    strings.TrimSpace(r.FormValue("agentname")),
			MobileNumber: strings.TrimSpace(r.FormValue("mobileNumber")),
			Password:     r.FormValue("password"),
		})
		if err != nil {
			handleMutationError(w, r, err, back)
			return
		}
		redirectWithFlash(w, r, SectionSettings.Path(), message)
	}
}

// DeleteAgentHandler removes an agent.
func (s *Server) DeleteAgentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ls, ok := loginSessionFrom(r.Context())
		if !ok {
			redirectSuccess(w, r, RouteLogin)
			return
		}
		back := SectionAgents.Path()

		message, err := ls.API.DeleteAgent(r.Context(), r.PathValue("agentno"))
		if err != nil {
			handleMutationError(w, r, err, back)
			return
		}
		redirectWithFlash(w, r, back, message)
	}
}

// UploadAgentFileHandler forwards a daily collection file for an agent.
func (s *Server) UploadAgentFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ls, ok := loginSessionFrom(r.Context())
		if !ok {
			redirectSuccess(w, r, RouteLogin)
			return
		}
		back := SectionAgents.Path()
		maxUpload := s.config.GetMaxUploadBytes()

		// Reuse the guard's wording for an oversized body
		tooLargeErr := patsanstha.ValidateUpload(".txt", maxUpload+1)
		if r.ContentLength > maxUpload+multipartOverhead {
			handleMutationError(w, r, tooLargeErr, back)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartOverhead)
		if err := r.ParseMultipartForm(multipartOverhead); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				handleMutationError(w, r, tooLargeErr, back)
				return
			}
			redirectWithError(w, r, back, "Please select a .txt file")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			redirectWithError(w, r, back, "Please select a .txt file")
			return
		}
		defer file.Close()

		agentNo := r.PathValue("agentno")
		message, err := ls.API.UploadAgentFile(r.Context(), agentNo, header.Filename, header.Size, file)
		if err != nil {
			handleMutationError(w, r, err, back)
			return
		}
		log.Info().Str("agent", agentNo).Str("file", header.Filename).Int64("size", header.Size).Msg("Collection file uploaded")
		redirectWithFlash(w, r, back, message)
	}
}

// DownloadCollectionHandler serves an agent's collection file as an attachment.
func (s *Server) DownloadCollectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ls, ok := loginSessionFrom(r.Context())
		if !ok {
			redirectSuccess(w, r, RouteLogin)
			return
		}
		agentNo := r.PathValue("agentno")
		date := r.URL.Query().Get("date")
		if date == "" {
			date = NowTimeFunc().Format(dateLayout)
		}
		back := withQuery(SectionAgents.Path(), "date", date)

		file, err := ls.API.DownloadCollection(r.Context(), agentNo, date)
		if err != nil {
			handleMutationError(w, r, err, back)
			return
		}

		filename := file.Filename
		if filename == "" {
			org, _ := session.FromContext(r.Context()).Current().Profile()
			filename = downloadFilename(org.PatName, agentNo, date)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		_, _ = w.Write([]byte(file.FileContent))
	}
}

// downloadFilename is the name used when the backend supplies none:
// <patname>_<agentno>_<date>.txt
func downloadFilename(patName, agentNo, date string) string {
	if patName == "" {
		patName = "collection"
	}
	name := fmt.Sprintf("%s_%s_%s.txt", patName, agentNo, date)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', '\n', '\r':
			return '_'
		}
		return r
	}, name)
}
