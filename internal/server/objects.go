package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/3leaps/blobstream/pkg/download"
	"github.com/3leaps/blobstream/pkg/source"
)

// handleGetObject streams one object, honoring a single "bytes=a-b" Range
// header. Responses are 206 with a Content-Range when a range was
// requested, 200 otherwise.
func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")
	if bucket == "" || key == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "bucket and key are required")
		return
	}

	offset, count, ranged, err := parseRangeHeader(r.Header.Get("Range"))
	if err != nil {
		writeError(w, http.StatusRequestedRangeNotSatisfiable, "RANGE_NOT_SATISFIABLE", err.Error())
		return
	}

	client, err := s.opts.Clients(r.Context(), bucket, key)
	if err != nil {
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
		return
	}

	opts := s.opts.Download
	opts.Name = key
	opts.Container = bucket
	opts.Offset = offset
	opts.Count = count
	opts.Logger = s.log
	// The response writer is sequential, so chunks must arrive in order.
	opts.MaxConcurrency = 1

	d, err := download.New(r.Context(), client, opts)
	if err != nil {
		s.writeSourceError(w, key, err)
		return
	}

	props := d.Properties()
	w.Header().Set("Content-Type", contentTypeOrDefault(props.ContentType))
	w.Header().Set("Content-Length", strconv.FormatInt(d.Size(), 10))
	w.Header().Set("Accept-Ranges", "bytes")
	if props.ETag != "" {
		w.Header().Set("ETag", props.ETag)
	}
	if ranged {
		w.Header().Set("Content-Range", props.ContentRange)
		w.WriteHeader(http.StatusPartialContent)
	}

	if _, err := d.ReadInto(r.Context(), w); err != nil {
		// Headers are gone; all we can do is log and drop the connection.
		s.log.Warn("object stream aborted",
			zap.String("bucket", bucket),
			zap.String("key", key),
			zap.Error(err))
	}
}

func (s *Server) writeSourceError(w http.ResponseWriter, key string, err error) {
	switch {
	case source.IsNotFound(err):
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("object %s not found", key))
	case source.IsAccessDenied(err):
		writeError(w, http.StatusForbidden, "ACCESS_DENIED", "access denied")
	case source.IsRangeNotSatisfiable(err):
		writeError(w, http.StatusRequestedRangeNotSatisfiable, "RANGE_NOT_SATISFIABLE", "requested range not satisfiable")
	case source.IsPreconditionFailed(err):
		writeError(w, http.StatusPreconditionFailed, "PRECONDITION_FAILED", "object changed during download")
	case source.IsThrottled(err):
		writeError(w, http.StatusTooManyRequests, "THROTTLED", "upstream throttled")
	default:
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error())
	}
}

// parseRangeHeader understands single-range "bytes=a-b" and "bytes=a-"
// forms. Suffix ranges ("bytes=-n") and multi-range sets are not served.
func parseRangeHeader(header string) (offset, count int64, ranged bool, err error) {
	if header == "" {
		return 0, 0, false, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, 0, false, fmt.Errorf("unsupported range %q", header)
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok || startStr == "" {
		return 0, 0, false, fmt.Errorf("unsupported range %q", header)
	}

	start, perr := strconv.ParseInt(startStr, 10, 64)
	if perr != nil || start < 0 {
		return 0, 0, false, fmt.Errorf("invalid range start %q", startStr)
	}
	if endStr == "" {
		return start, 0, true, nil
	}

	end, perr := strconv.ParseInt(endStr, 10, 64)
	if perr != nil || end < start {
		return 0, 0, false, fmt.Errorf("invalid range end %q", endStr)
	}
	return start, end - start + 1, true, nil
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
