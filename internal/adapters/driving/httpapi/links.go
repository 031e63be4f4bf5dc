package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HandleCreateLink issues an upload link for the caller.
// POST /api/v1/links
func (h *Handler) HandleCreateLink(c echo.Context) error {
	var req CreateLinkRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	link, err := h.ports.Links.Create(c.Request().Context(), req.toDomain(ownerOf(c)))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newLinkResponse(link))
}

// HandleListLinks lists the caller's links.
// GET /api/v1/links
func (h *Handler) HandleListLinks(c echo.Context) error {
	links, err := h.ports.Links.List(c.Request().Context(), ownerOf(c))
	if err != nil {
		return err
	}

	resp := LinkListResponse{Links: make([]LinkResponse, 0, len(links)), Count: len(links)}
	for i := range links {
		resp.Links = append(resp.Links, newLinkResponse(&links[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetLink returns one of the caller's links.
// GET /api/v1/links/:token
func (h *Handler) HandleGetLink(c echo.Context) error {
	link, err := h.ports.Links.Get(c.Request().Context(), ownerOf(c), c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newLinkResponse(link))
}

// HandleUpdateLink pauses or resumes one of the caller's links.
// PATCH /api/v1/links/:token {"is_active": false}
func (h *Handler) HandleUpdateLink(c echo.Context) error {
	var req UpdateLinkRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.IsActive == nil {
		return NewBadRequestError("is_active is required", nil)
	}

	link, err := h.ports.Links.SetActive(c.Request().Context(), ownerOf(c), c.Param("token"), *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newLinkResponse(link))
}

// HandleDeleteLink removes one of the caller's links.
// DELETE /api/v1/links/:token
func (h *Handler) HandleDeleteLink(c echo.Context) error {
	if err := h.ports.Links.Delete(c.Request().Context(), ownerOf(c), c.Param("token")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleLinkInfo describes a public upload link to the uploader.
// GET /api/v1/upload-to/:token
func (h *Handler) HandleLinkInfo(c echo.Context) error {
	link, err := h.ports.Links.Resolve(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"upload_link": newPublicLinkResponse(link)})
}

// HandleLinkUpload accepts a multipart "file" field through a public link.
// POST /api/v1/upload-to/:token
func (h *Handler) HandleLinkUpload(c echo.Context) error {
	req, err := readUpload(c)
	if err != nil {
		return err
	}

	res, err := h.ports.Links.IngestViaLink(c.Request().Context(), c.Param("token"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newIngestResponse(res))
}
