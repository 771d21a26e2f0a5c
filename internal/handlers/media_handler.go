package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	service "album-service/internal/services"
	"album-service/internal/utils"
)

type uploadResult struct {
	Filename string      `json:"filename"`
	Asset    interface{} `json:"asset,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// POST /albums/:id/media (multipart/form-data, field "files", up to 10)
func (h *Handler) Upload(c *fiber.Ctx) error {
	userID, err := h.userID(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "invalid token")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.JSONError(c, fiber.StatusBadRequest, "multipart form required")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return utils.JSONError(c, fiber.StatusBadRequest, "no files provided")
	}
	if len(headers) > service.MaxBatchFiles {
		return utils.JSONError(c, fiber.StatusBadRequest, service.ErrTooManyFiles.Error())
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFileHeader(fh)
		if err != nil {
			return utils.JSONError(c, fiber.StatusInternalServerError, "cannot read file")
		}
		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = http.DetectContentType(data)
		}
		files = append(files, service.UploadFile{
			Filename:    fh.Filename,
			ContentType: ct,
			Data:        data,
		})
	}

	results, err := h.ingest.IngestBatch(c.Context(), c.Params("id"), userID, files)
	if err != nil {
		return utils.JSONError(c, statusFor(err), err.Error())
	}

	out := make([]uploadResult, len(results))
	succeeded := 0
	for i, r := range results {
		out[i] = uploadResult{Filename: r.Filename}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			continue
		}
		out[i].Asset = r.Asset
		succeeded++
	}
	status := fiber.StatusCreated
	if succeeded == 0 {
		status = statusFor(results[0].Err)
	}
	return utils.JSONSuccess(c, status, fiber.Map{"results": out, "succeeded": succeeded})
}

// GET /media/:id/url
func (h *Handler) GetDownloadURL(c *fiber.Ctx) error {
	if _, err := h.userID(c); err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "invalid token")
	}
	url, err := h.media.DownloadURL(c.Context(), c.Params("id"))
	if err != nil {
		return utils.JSONError(c, statusFor(err), err.Error())
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"url": url})
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
