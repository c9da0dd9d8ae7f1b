package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 10 << 20

func (h *Handler) uploadDocument(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "file is required")
		return
	}
	f, err := header.Open()
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.handleError(c, err)
		return
	}

	doc, err := h.docs.Upload(c.Request.Context(), req.ID, header.Filename,
		bytes.NewReader(data), int64(len(data)), header.Header.Get("Content-Type"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Document uploaded", doc)
}

func (h *Handler) listDocuments(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	docs, err := h.docs.List(c.Request.Context(), req.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	respond(c, http.StatusOK, "Documents retrieved", docs)
}
