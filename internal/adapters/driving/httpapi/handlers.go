package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

const ownerKey = "owner_id"

// Handler serves the API routes.
type Handler struct {
	ports *Ports
}

// NewHandler creates a handler over ports.
func NewHandler(ports *Ports) *Handler {
	return &Handler{ports: ports}
}

// RequireOwner rejects requests without an owner header.
func RequireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := strings.TrimSpace(c.Request().Header.Get(OwnerHeader))
		if id == "" {
			return toAPIError(domain.ErrOwnerRequired)
		}
		c.Set(ownerKey, id)
		return next(c)
	}
}

func ownerOf(c echo.Context) string {
	id, _ := c.Get(ownerKey).(string)
	if id == "" {
		id = strings.TrimSpace(c.Request().Header.Get(OwnerHeader))
	}
	return id
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HandleUpload accepts a multipart "file" field and runs the pipeline.
// POST /api/v1/files
func (h *Handler) HandleUpload(c echo.Context) error {
	req, err := readUpload(c)
	if err != nil {
		return err
	}
	req.OwnerID = ownerOf(c)

	res, err := h.ports.Ingest.Ingest(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newIngestResponse(res))
}

// readUpload reads the multipart "file" field into an IngestRequest
// without an owner.
func readUpload(c echo.Context) (domain.IngestRequest, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return domain.IngestRequest{}, NewBadRequestError(`multipart field "file" is required`, err)
	}

	src, err := fh.Open()
	if err != nil {
		return domain.IngestRequest{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return domain.IngestRequest{}, fmt.Errorf("read upload: %w", err)
	}

	return domain.IngestRequest{
		Blob:     data,
		MIMEType: fh.Header.Get(echo.HeaderContentType),
		Filename: fh.Filename,
	}, nil
}

// HandleListFiles lists the caller's files, optionally by category.
// GET /api/v1/files?category=receipts
func (h *Handler) HandleListFiles(c echo.Context) error {
	records, err := h.ports.Files.List(c.Request().Context(), ownerOf(c), c.QueryParam("category"))
	if err != nil {
		return err
	}

	resp := FileListResponse{Files: make([]FileResponse, 0, len(records)), Count: len(records)}
	for i := range records {
		resp.Files = append(resp.Files, newFileResponse(&records[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleCategories counts the caller's files per kind.
// GET /api/v1/files/categories
func (h *Handler) HandleCategories(c echo.Context) error {
	counts, err := h.ports.Files.Categories(c.Request().Context(), ownerOf(c))
	if err != nil {
		return err
	}

	resp := make([]CategoryResponse, 0, len(counts))
	for _, k := range domain.AllKinds() {
		resp = append(resp, CategoryResponse{Kind: k.String(), Description: k.Description(), Count: counts[k]})
	}
	return c.JSON(http.StatusOK, map[string]any{"categories": resp})
}

// HandleGetFile returns one file record.
// GET /api/v1/files/:id
func (h *Handler) HandleGetFile(c echo.Context) error {
	rec, err := h.ports.Files.Get(c.Request().Context(), ownerOf(c), domain.FileID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newFileResponse(rec))
}

// HandleDeleteFile removes a file with its blob and index entries.
// DELETE /api/v1/files/:id
func (h *Handler) HandleDeleteFile(c echo.Context) error {
	if err := h.ports.Files.Delete(c.Request().Context(), ownerOf(c), domain.FileID(c.Param("id"))); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleReindex reruns the pipeline over a stored file.
// POST /api/v1/files/:id/reindex
func (h *Handler) HandleReindex(c echo.Context) error {
	res, err := h.ports.Ingest.Reindex(c.Request().Context(), ownerOf(c), domain.FileID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newIngestResponse(res))
}

// HandleQuery retrieves context and optionally an answer.
// POST /api/v1/query
func (h *Handler) HandleQuery(c echo.Context) error {
	var req QueryRequest
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	res, err := h.ports.Query.Query(c.Request().Context(), req.toDomain(ownerOf(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newQueryResponse(res))
}
