package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mappoint/geocsv/internal/export"
	"github.com/mappoint/geocsv/internal/feature"
	"github.com/mappoint/geocsv/internal/mapping"
	"github.com/mappoint/geocsv/internal/table"
)

// Options configures the HTTP API.
type Options struct {
	MaxUploadBytes int64
}

// Handler returns the HTTP API for the manager.
func Handler(m *Manager, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/jobs", createJob(m, opts))
	r.Route("/jobs/{jobID}", func(r chi.Router) {
		r.Get("/", jobStatus(m))
		r.Delete("/", cancelJob(m))
		r.Get("/geojson", jobGeoJSON(m))
		r.Get("/failures", jobFailures(m))
	})

	return r
}

// createJob accepts a multipart upload: a "file" part holding the CSV and an
// optional "mapping" field holding a ColumnMapping as JSON. Without a mapping
// the address columns are auto-detected and every remaining column becomes
// metadata.
func createJob(m *Manager, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxUploadBytes)
		if err := r.ParseMultipartForm(opts.MaxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart request")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file upload")
			return
		}
		defer file.Close() //nolint:errcheck

		tbl, err := table.ReadCSV(file, table.CSVOptions{
			Delimiter: delimiterFromForm(r.FormValue("delimiter")),
			Encoding:  r.FormValue("encoding"),
		})
		if err != nil {
			zap.L().Warn("job upload: parse failed", zap.String("filename", header.Filename), zap.Error(err))
			writeError(w, http.StatusBadRequest, "could not parse the uploaded file")
			return
		}

		var cm mapping.ColumnMapping
		if raw := r.FormValue("mapping"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &cm); err != nil {
				writeError(w, http.StatusBadRequest, "invalid mapping JSON")
				return
			}
		} else {
			cm = mapping.Detect(tbl.Headers)
			cm.Metadata = cm.DefaultMetadata(tbl.Headers)
		}

		if problems := cm.Validate(tbl.Headers); len(problems) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": problems})
			return
		}

		job := m.Start(tbl, cm, header.Filename)
		zap.L().Info("job started",
			zap.String("job_id", job.ID),
			zap.String("filename", job.Filename),
			zap.Int("rows", len(tbl.Rows)),
		)

		writeJSON(w, http.StatusAccepted, map[string]any{
			"id":      job.ID,
			"total":   len(tbl.Rows),
			"mapping": cm,
		})
	}
}

func jobStatus(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := m.Get(chi.URLParam(r, "jobID"))
		if !ok {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}

		status, progress := job.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         job.ID,
			"status":     status,
			"total":      progress.Total,
			"processed":  progress.Processed,
			"successful": progress.Successful,
			"failed":     progress.Failed,
		})
	}
}

func cancelJob(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := m.Get(chi.URLParam(r, "jobID"))
		if !ok {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}

		job.Cancel()
		writeJSON(w, http.StatusAccepted, map[string]string{"id": job.ID, "status": "cancelling"})
	}
}

func jobGeoJSON(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := m.Get(chi.URLParam(r, "jobID"))
		if !ok {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}

		results := job.Results()
		if results == nil {
			writeError(w, http.StatusConflict, "job still running")
			return
		}

		fc := feature.Assemble(results, job.Mapping.Metadata)
		data, err := export.MarshalGeoJSON(fc)
		if err != nil {
			zap.L().Error("job geojson: marshal failed", zap.String("job_id", job.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not serialize feature collection")
			return
		}

		name := export.GeoJSONName(job.Filename, time.Now())
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func jobFailures(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, ok := m.Get(chi.URLParam(r, "jobID"))
		if !ok {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}

		results := job.Results()
		if results == nil {
			writeError(w, http.StatusConflict, "job still running")
			return
		}

		data, err := export.Failures(results)
		if err != nil {
			zap.L().Error("job failures: serialize failed", zap.String("job_id", job.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not serialize failure csv")
			return
		}
		if data == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		name := export.FailureName(job.Filename, time.Now())
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// delimiterFromForm maps a form value to a CSV delimiter rune; empty input
// keeps the default comma.
func delimiterFromForm(v string) rune {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if v == "\\t" || strings.EqualFold(v, "tab") {
		return '\t'
	}
	return []rune(v)[0]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
