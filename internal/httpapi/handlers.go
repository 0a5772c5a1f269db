package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
	"github.com/KaramelBytes/datahub-cli/internal/fields"
	"github.com/KaramelBytes/datahub-cli/internal/ingest"
	"github.com/KaramelBytes/datahub-cli/internal/store"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FileError reports one rejected upload.
type FileError struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// UploadResponse reports a batch upload. Message aggregates every failure.
type UploadResponse struct {
	Results []ingest.Result `json:"results"`
	Errors  []FileError     `json:"errors,omitempty"`
	Message string          `json:"message,omitempty"`
}

// StatusResponse describes server state.
type StatusResponse struct {
	Datasets ingest.Stats `json:"datasets"`
	Live     bool         `json:"live"`
	Store    string       `json:"store"`
	Uptime   string       `json:"uptime"`
}

// Ping answers liveness checks.
func Ping() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Upload ingests the multipart fields "file" and "files". The optional form
// field "kind" applies to every file; without it each file's domain is
// detected from its header. Rejected files are listed without affecting the
// rest: 200 when all succeed, 207 on partial success, 400 when none do.
func (s *Server) Upload() gin.HandlerFunc {
	return func(c *gin.Context) {
		var kind fields.Kind
		if raw := c.PostForm("kind"); raw != "" {
			k, err := fields.ParseKind(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
				return
			}
			kind = k
		}
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "expected multipart form: " + err.Error()})
			return
		}
		var headers []*multipart.FileHeader
		headers = append(headers, form.File["file"]...)
		headers = append(headers, form.File["files"]...)
		if len(headers) == 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no files uploaded"})
			return
		}

		var batch ingest.Batch
		limit := s.svc.Policy().MaxBytes
		for _, fh := range headers {
			// readPart truncates at the limit, so size is checked on the header
			if err := s.svc.Policy().Validate(fh.Filename, fh.Size); err != nil {
				batch.Errors = append(batch.Errors, err)
				continue
			}
			data, err := readPart(fh, limit)
			if err != nil {
				batch.Errors = append(batch.Errors, &ingest.ValidationError{File: fh.Filename, Reason: err.Error()})
				continue
			}
			d, err := s.svc.Ingest(fh.Filename, kind, data)
			if err != nil {
				batch.Errors = append(batch.Errors, err)
				continue
			}
			batch.Results = append(batch.Results, d.Summary())
			s.persist(c, d, data)
		}

		resp := UploadResponse{Results: batch.Results}
		if resp.Results == nil {
			resp.Results = []ingest.Result{}
		}
		for _, e := range batch.Errors {
			var ve *ingest.ValidationError
			if errors.As(e, &ve) {
				resp.Errors = append(resp.Errors, FileError{File: ve.File, Reason: ve.Reason})
			} else {
				resp.Errors = append(resp.Errors, FileError{Reason: e.Error()})
			}
		}
		if err := batch.Err(); err != nil {
			resp.Message = err.Error()
		}
		if len(batch.Results) > 0 {
			s.Refresh(c.Request.Context())
		}
		status := http.StatusOK
		switch {
		case len(batch.Results) == 0:
			status = http.StatusBadRequest
		case len(batch.Errors) > 0:
			status = http.StatusMultiStatus
		}
		c.JSON(status, resp)
	}
}

func readPart(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	var r io.Reader = f
	if limit > 0 {
		// one byte past the limit is enough for validation to reject it
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func (s *Server) persist(c *gin.Context, d *ingest.Dataset, data []byte) {
	if s.store == nil {
		return
	}
	err := s.store.PutDataset(c.Request.Context(), store.Dataset{
		ID:         d.ID,
		Name:       d.Name,
		Kind:       d.Kind,
		Content:    data,
		Rows:       d.Table.RowCount(),
		Columns:    d.Table.ColumnCount(),
		UploadedAt: d.UploadedAt,
	}, s.ttl)
	if err != nil {
		s.log.Warn().Err(err).Str("dataset", d.ID).Msg("dataset not persisted")
	}
}

// ListDatasets lists retained datasets.
func (s *Server) ListDatasets() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.svc.List())
	}
}

// DeleteDataset drops one dataset and recomposes.
func (s *Server) DeleteDataset() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := s.svc.Remove(id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ingest.ErrNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, ErrorResponse{Error: err.Error()})
			return
		}
		if s.store != nil {
			if err := s.store.DeleteDataset(c.Request.Context(), id); err != nil && !errors.Is(err, store.ErrNotFound) {
				s.log.Warn().Err(err).Str("dataset", id).Msg("stored copy not deleted")
			}
		}
		s.Refresh(c.Request.Context())
		c.Status(http.StatusNoContent)
	}
}

// ResetDatasets drops every dataset.
func (s *Server) ResetDatasets() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.svc.Reset()
		if s.store != nil {
			if err := s.store.DeleteAllDatasets(c.Request.Context()); err != nil {
				s.log.Warn().Err(err).Msg("stored copies not deleted")
			}
		}
		s.Refresh(c.Request.Context())
		c.Status(http.StatusNoContent)
	}
}

// Dashboard returns the current payload. While live updates run it is the
// simulator's latest tick; otherwise it is freshly composed and recorded.
func (s *Server) Dashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.sim.Running() {
			c.JSON(http.StatusOK, s.sim.Current())
			return
		}
		p := s.Refresh(c.Request.Context())
		if s.store != nil {
			if _, err := s.store.SaveSnapshot(c.Request.Context(), p); err != nil {
				s.log.Warn().Err(err).Msg("snapshot not saved")
			}
		}
		c.JSON(http.StatusOK, p)
	}
}

// Status reports dataset counts, live state and store health.
func (s *Server) Status() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := StatusResponse{
			Datasets: s.svc.Stats(),
			Live:     s.sim.Running(),
			Store:    "disabled",
			Uptime:   time.Since(s.started).Round(time.Second).String(),
		}
		if s.store != nil {
			resp.Store = "ok"
			if err := s.store.Health(c.Request.Context()); err != nil {
				resp.Store = err.Error()
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// History lists stored payload snapshots, newest first. ?limit= caps the count.
func (s *Server) History() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.store == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "history requires a store"})
			return
		}
		limit := 20
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
				return
			}
			limit = n
		}
		snaps, err := s.store.ListSnapshots(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		if snaps == nil {
			snaps = []store.Snapshot{}
		}
		c.JSON(http.StatusOK, snaps)
	}
}

// StartLive starts the simulator from a fresh composition. Starting twice is
// harmless; "started" tells whether this call did it.
func (s *Server) StartLive() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := s.StartSimulation(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"running": true, "started": started})
	}
}

// StopLive stops the simulator.
func (s *Server) StopLive() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.sim.Stop()
		c.JSON(http.StatusOK, gin.H{"running": false})
	}
}

// Live streams payloads as server-sent events: the current payload first,
// then one event per tick. Slow clients miss ticks rather than block the
// simulator.
func (s *Server) Live() gin.HandlerFunc {
	return func(c *gin.Context) {
		ch := make(chan *dashboard.Payload, 4)
		unsubscribe := s.sim.Subscribe(func(p *dashboard.Payload) {
			select {
			case ch <- p:
			default:
			}
		})
		defer unsubscribe()

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		first := true
		ctx := c.Request.Context()
		c.Stream(func(w io.Writer) bool {
			if first {
				first = false
				c.SSEvent("payload", s.sim.Current())
				return true
			}
			select {
			case <-ctx.Done():
				return false
			case p := <-ch:
				c.SSEvent("payload", p)
				return true
			}
		})
	}
}
