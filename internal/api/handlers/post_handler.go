package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/repository"
)

type PostHandler struct {
	pr repository.PostRepository
	ph repository.PostingHistoryRepository
}

func NewPostHandler(pr repository.PostRepository, ph repository.PostingHistoryRepository) *PostHandler {
	return &PostHandler{pr: pr, ph: ph}
}

// History lists every publish attempt recorded for one of the caller's posts.
func (h *PostHandler) History(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID, err := c.ParamsInt("id")
	if err != nil || postID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid post id",
		})
	}

	post, err := h.pr.GetByID(c.Context(), int64(postID))
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load post",
		})
	}
	if post == nil || post.UserID != userID {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Post not found",
		})
	}

	history, err := h.ph.ListByPostID(c.Context(), post.ID)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list posting history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post":    post,
		"history": history,
	})
}
