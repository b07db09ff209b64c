package detection

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mediscanhq/mediscan-backend/internal/authctx"
	"github.com/mediscanhq/mediscan-backend/internal/dto"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListTypes is the only public detection endpoint; the selector screen
// renders it before login.
func (h *Handler) ListTypes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": Options()})
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	userID, err := authctx.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id := h.svc.StartSession(userID)
	return c.Status(fiber.StatusCreated).JSON(SessionResponse{
		SessionID: id,
		Phase:     PhaseIdle.String(),
	})
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	wf, sessionID, err := h.workflow(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(snapshot(sessionID, wf))
}

func (h *Handler) SelectType(c *fiber.Ctx) error {
	wf, sessionID, err := h.workflow(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req SelectTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	t, ok := ParseType(req.Type)
	if !ok {
		return badRequest(c, "Unknown detection type: "+req.Type)
	}
	if err := wf.SelectType(t); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(snapshot(sessionID, wf))
}

// UploadImage accepts either a multipart form with an "image" file or a
// raw body upload, and moves the session to image_loaded.
func (h *Handler) UploadImage(c *fiber.Ctx) error {
	wf, sessionID, err := h.workflow(c)
	if err != nil {
		return h.fail(c, err)
	}

	raw, err := imageBytes(c)
	if err != nil {
		return badRequest(c, "Could not read uploaded image")
	}

	img, err := wf.LoadImage(raw)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(UploadResponse{
		SessionID:   sessionID,
		Phase:       wf.Phase().String(),
		ContentType: img.ContentType,
		Size:        img.Size,
	})
}

func (h *Handler) Analyze(c *fiber.Ctx) error {
	userID, err := authctx.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid session ID")
	}

	record, err := h.svc.Analyze(c.Context(), sessionID, userID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"data": record})
}

// Reset returns the session to type selection; ?full=true drops the
// selected type too.
func (h *Handler) Reset(c *fiber.Ctx) error {
	wf, sessionID, err := h.workflow(c)
	if err != nil {
		return h.fail(c, err)
	}
	if c.Query("full") == "true" {
		wf.Clear()
	} else {
		wf.Reset()
	}
	return c.JSON(snapshot(sessionID, wf))
}

func (h *Handler) EndSession(c *fiber.Ctx) error {
	userID, err := authctx.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid session ID")
	}
	h.svc.EndSession(sessionID, userID)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) History(c *fiber.Ctx) error {
	userID, err := authctx.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)

	records, total, err := h.svc.History(userID, page, pageSize)
	if err != nil {
		return serverError(c, "Could not load detection history")
	}
	return c.JSON(HistoryResponse{
		Data:       records,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	})
}

func (h *Handler) GetRecord(c *fiber.Ctx) error {
	userID, err := authctx.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid record ID")
	}

	record, err := h.svc.GetRecord(userID, id)
	if errors.Is(err, ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Detection record not found"})
	}
	if err != nil {
		return serverError(c, "Could not load detection record")
	}
	return c.JSON(fiber.Map{"data": record})
}

func (h *Handler) Stats(c *fiber.Ctx) error {
	userID, err := authctx.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	stats, err := h.svc.Stats(userID)
	if err != nil {
		return serverError(c, "Could not compute detection stats")
	}
	return c.JSON(fiber.Map{"data": stats})
}

func (h *Handler) workflow(c *fiber.Ctx) (*Workflow, uuid.UUID, error) {
	userID, err := authctx.GetUserID(c)
	if err != nil {
		return nil, uuid.Nil, authctx.ErrNoClaims
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, uuid.Nil, ErrSessionNotFound
	}
	wf, err := h.svc.Session(sessionID, userID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return wf, sessionID, nil
}

func snapshot(sessionID uuid.UUID, wf *Workflow) SessionResponse {
	return SessionResponse{
		SessionID: sessionID,
		Phase:     wf.Phase().String(),
		Type:      string(wf.Type()),
		HasImage:  wf.Image() != nil,
		Result:    wf.Result(),
	}
}

func imageBytes(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("image")
	if err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return c.Body(), nil
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, authctx.ErrNoClaims):
		return unauthorized(c)
	case errors.Is(err, ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Detection session not found"})
	case errors.Is(err, ErrAnalyzing), errors.Is(err, ErrAlreadyCompleted), errors.Is(err, ErrSuperseded):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
	case errors.Is(err, ErrUnknownType),
		errors.Is(err, ErrNoTypeSelected),
		errors.Is(err, ErrNoImage),
		errors.Is(err, ErrEmptyImage),
		errors.Is(err, ErrUnsupportedImage),
		errors.Is(err, ErrImageTooLarge):
		return badRequest(c, err.Error())
	default:
		return serverError(c, "Detection operation failed")
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}

func serverError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

// RegisterRoutes mounts the detection API under the given router. The
// types listing stays public; everything else requires auth middleware
// applied by the caller.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/:id", h.GetSession)
	r.Post("/sessions/:id/type", h.SelectType)
	r.Post("/sessions/:id/image", h.UploadImage)
	r.Post("/sessions/:id/analyze", h.Analyze)
	r.Post("/sessions/:id/reset", h.Reset)
	r.Delete("/sessions/:id", h.EndSession)
	r.Get("/history", h.History)
	r.Get("/history/:id", h.GetRecord)
	r.Get("/stats", h.Stats)
}
