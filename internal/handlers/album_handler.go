package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"album-service/internal/auth"
	service "album-service/internal/services"
	"album-service/internal/utils"
)

type Handler struct {
	verifier *auth.JWTVerifier
	albums   *service.AlbumService
	ingest   *service.IngestService
	media    *service.MediaService
}

func NewHandler(v *auth.JWTVerifier, albums *service.AlbumService, ingest *service.IngestService, media *service.MediaService) *Handler {
	return &Handler{verifier: v, albums: albums, ingest: ingest, media: media}
}

// userID authenticates the request from its Bearer token.
func (h *Handler) userID(c *fiber.Ctx) (string, error) {
	token := c.Get("Authorization")
	if token == "" {
		return "", errors.New("missing auth")
	}
	token = strings.TrimPrefix(token, "Bearer ")
	return h.verifier.VerifyToken(token)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrAlbumNotFound), errors.Is(err, service.ErrMediaNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNotMember), errors.Is(err, service.ErrNotAdmin):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrAlbumExpired),
		errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, service.ErrTooManyFiles),
		errors.Is(err, service.ErrUnsupportedType),
		errors.Is(err, service.ErrInvalidDuration):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

type createAlbumRequest struct {
	Title        string `json:"title"`
	DurationDays int    `json:"duration_days"`
}

// POST /albums
func (h *Handler) CreateAlbum(c *fiber.Ctx) error {
	userID, err := h.userID(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "invalid token")
	}
	var req createAlbumRequest
	if err := c.BodyParser(&req); err != nil || req.Title == "" {
		return utils.JSONError(c, fiber.StatusBadRequest, "title and duration_days required")
	}
	album, err := h.albums.Create(c.Context(), userID, req.Title, req.DurationDays)
	if err != nil {
		return utils.JSONError(c, statusFor(err), err.Error())
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, album)
}

// GET /albums/:id
func (h *Handler) GetAlbum(c *fiber.Ctx) error {
	if _, err := h.userID(c); err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "invalid token")
	}
	album, err := h.albums.Get(c.Context(), c.Params("id"))
	if err != nil {
		return utils.JSONError(c, statusFor(err), err.Error())
	}
	return utils.JSONSuccess(c, fiber.StatusOK, album)
}

// POST /albums/:id/join
func (h *Handler) JoinAlbum(c *fiber.Ctx) error {
	userID, err := h.userID(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "invalid token")
	}
	member, err := h.albums.Join(c.Context(), c.Params("id"), userID)
	if err != nil {
		return utils.JSONError(c, statusFor(err), err.Error())
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, member)
}

// POST /albums/:id/expire
func (h *Handler) ExpireAlbum(c *fiber.Ctx) error {
	userID, err := h.userID(c)
	if err != nil {
		return utils.JSONError(c, fiber.StatusUnauthorized, "invalid token")
	}
	if err := h.albums.ForceExpire(c.Context(), c.Params("id"), userID); err != nil {
		return utils.JSONError(c, statusFor(err), err.Error())
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"expired": true})
}
