package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/store"
)

const (
	// maxImportBytes caps the size of an uploaded snapshot.
	maxImportBytes = 32 << 20
	// maxFormBytes matches the limit net/http applies to parsed forms.
	maxFormBytes = 10 << 20
)

type listResponse struct {
	List string `json:"list"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, s.viewLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	overview, err := s.store.Overview(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	lists, err := s.store.Tables(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	groups, err := s.store.Info(r.Context(), listParam(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleStatuses(w http.ResponseWriter, r *http.Request) {
	cols, err := s.store.Statuses(r.Context(), listParam(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

type setStatusesRequest struct {
	Statuses []int64 `json:"statuses"`
}

func (s *Server) handleSetStatuses(w http.ResponseWriter, r *http.Request) {
	var req setStatusesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	list := listParam(r)
	if err := s.store.SetListStatuses(r.Context(), list, req.Statuses); err != nil {
		s.writeError(w, r, err)
		return
	}
	cols, err := s.store.Statuses(r.Context(), list)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var cmd model.InsertCommand
	if isJSON(r) {
		if err := decodeJSON(r, &cmd); err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		values, err := formValues(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if cmd, err = model.ParseInsertForm(values); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	list := listParam(r)
	if err := s.store.Insert(r.Context(), cmd, list); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, listResponse{List: list})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var cmd model.UpdateCommand
	if isJSON(r) {
		if err := decodeJSON(r, &cmd); err != nil {
			s.writeError(w, r, err)
			return
		}
		cmd.ID = id
	} else {
		list, err := s.store.List(r.Context(), listParam(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		values, err := formValues(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if cmd, err = model.ParseUpdateForm(values, id, list.ID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	dest, err := s.store.UpdateOrMove(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{List: dest})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	values, err := deleteValues(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), model.ParseDeleteForm(values, id)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{List: listParam(r)})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleApplySettings(w http.ResponseWriter, r *http.Request) {
	var cmd model.SettingsCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.store.ApplySettings(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := model.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.store.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := snap.Encode(format)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("encoding snapshot: %w", err))
		return
	}

	contentType := "application/json"
	if format == model.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="checklist.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	data, format, err := readUpload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := model.DecodeSnapshot(data, format, model.FormatDate(s.now()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Import(r.Context(), snap); err != nil {
		s.writeError(w, r, err)
		return
	}
	lists, err := s.store.Tables(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

type checkResponse struct {
	Consistent bool                     `json:"consistent"`
	Violations []model.DensityViolation `json:"violations"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	violations, err := s.store.CheckDensity(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if violations == nil {
		violations = []model.DensityViolation{}
	}
	writeJSON(w, http.StatusOK, checkResponse{Consistent: len(violations) == 0, Violations: violations})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditor == nil {
		s.writeError(w, r, fmt.Errorf("background audit is disabled: %w", store.ErrNotFound))
		return
	}
	if r.URL.Query().Get("run") == "1" {
		s.auditor.Trigger()
		writeJSON(w, http.StatusAccepted, s.auditor.Status())
		return
	}
	writeJSON(w, http.StatusOK, s.auditor.Status())
}

// readUpload returns the snapshot bytes from a multipart "file" field or
// the raw body. The format comes from ?format=, the file name, or the
// content type, in that order.
func readUpload(r *http.Request) ([]byte, model.Format, error) {
	query := r.URL.Query().Get("format")
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		data []byte
		name string
		err  error
	)
	if mediaType == "multipart/form-data" {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			return nil, "", fmt.Errorf("%w: reading upload: %v", store.ErrMalformedInput, ferr)
		}
		defer file.Close()
		name = header.Filename
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading upload: %v", store.ErrMalformedInput, err)
	}

	switch {
	case query != "":
		f, err := model.ParseFormat(query)
		return data, f, err
	case name != "":
		return data, model.FormatFromPath(name), nil
	case strings.Contains(mediaType, "yaml"):
		return data, model.FormatYAML, nil
	default:
		return data, model.FormatJSON, nil
	}
}

// listParam returns the list name from the URL.
func listParam(r *http.Request) string {
	v := chi.URLParam(r, "list")
	if r.URL.RawPath != "" {
		if u, err := url.PathUnescape(v); err == nil {
			v = u
		}
	}
	return v
}

func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: limit %q is not a non-negative number", store.ErrMalformedInput, raw)
	}
	return v, nil
}

func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding request body: %v", store.ErrMalformedInput, err)
	}
	return nil
}

// deleteValues returns the query string merged with a form or JSON body.
// net/http does not parse DELETE bodies, so they are read here.
func deleteValues(r *http.Request) (url.Values, error) {
	values := r.URL.Query()
	if r.Body == nil {
		return values, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body struct {
			Name *string `json:"name"`
		}
		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: decoding request body: %v", store.ErrMalformedInput, err)
		}
		if body.Name != nil {
			values.Set("name", *body.Name)
		}
	case "application/x-www-form-urlencoded":
		data, err := io.ReadAll(io.LimitReader(r.Body, maxFormBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: reading request body: %v", store.ErrMalformedInput, err)
		}
		form, err := url.ParseQuery(string(data))
		if err != nil {
			return nil, fmt.Errorf("%w: parsing form: %v", store.ErrMalformedInput, err)
		}
		for k, v := range form {
			values[k] = v
		}
	}
	return values, nil
}

// formValues returns the submitted form merged with the query string.
func formValues(r *http.Request) (url.Values, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: parsing form: %v", store.ErrMalformedInput, err)
	}
	return r.Form, nil
}
