package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	config "github.com/reelflow/reelflow-api/configs"
	"github.com/reelflow/reelflow-api/internal/queue"
	"github.com/reelflow/reelflow-api/internal/service"
	"github.com/reelflow/reelflow-api/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	publish     service.PublishService
	clone       service.CloneService
	AsynqClient *asynq.Client
	cfg         config.Config
}

func NewPostHandler(s service.PostService, publish service.PublishService, clone service.CloneService, asynqClient *asynq.Client, cfg config.Config) *PostHandler {
	return &PostHandler{
		s:           s,
		publish:     publish,
		clone:       clone,
		AsynqClient: asynqClient,
		cfg:         cfg,
	}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	pc := transfer.PostCreation{
		Title:         c.FormValue("title"),
		Description:   c.FormValue("description"),
		AccountID:     c.FormValue("account_id"),
		ScheduledTime: c.FormValue("scheduled_time"),
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No files selected",
		})
	}

	postID, delay, err := h.s.CreatePost(c.Context(), userID, &pc, files)
	if err != nil {
		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if pc.ScheduledTime != "" {
		err = queue.EnqueuePublish(h.AsynqClient, queue.PublishPostPayload{PostID: postID}, delay)
		if err != nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"post_id": postID,
				"error":   "Error scheduling post",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post_id": postID,
		"message": "Post created successfully",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), userID)
		if err != nil {
			return c.Status(statusFromError(err)).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}

		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var pu transfer.PostUpdate
	if err := c.BodyParser(&pu); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse body",
		})
	}

	if err := h.s.UpdateDraft(c.Context(), userID, &pu); err != nil {
		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), userID, int64(postID))
	if err != nil {
		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) RemoveAsset(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("post_id", 0)
	assetID := c.QueryInt("asset_id", 0)

	err := h.s.RemoveAsset(c.Context(), userID, int64(postID), int64(assetID))
	if err != nil {
		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) SubmitPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	publishID, err := h.publish.Submit(c.Context(), userID, int64(postID))
	if err != nil {
		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	err = queue.EnqueueReconcile(h.AsynqClient, queue.ReconcilePayload{PostID: int64(postID), PublishID: publishID}, h.cfg.PublishReconcileIn)
	if err != nil {
		slog.Error(err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"correlation_id": publishID,
	})
}

func (h *PostHandler) ClonePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	result, err := h.clone.Clone(c.Context(), userID, int64(postID))
	if err != nil {
		return c.Status(statusFromError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
