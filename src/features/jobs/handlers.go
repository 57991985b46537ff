package jobs

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

// JobResponse is a wrapper for the Job struct to include API links
type JobResponse struct {
	*Job
	Links map[string]string `json:"_links"`
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func links(baseURL string, job *Job) map[string]string {
	return map[string]string{
		"self": fmt.Sprintf("%s/api/jobs/%s", baseURL, job.ID),
		"logs": fmt.Sprintf("%s/api/jobs/%s/logs", baseURL, job.ID),
	}
}

func (h *Handler) HandleJobStatus(c *fiber.Ctx) error {
	job, exists := h.service.GetJob(c.Params("id"))
	if !exists {
		return fiber.NewError(fiber.StatusNotFound, "job not found")
	}
	return c.JSON(&JobResponse{Job: job, Links: links(c.BaseURL(), job)})
}

func (h *Handler) HandleJobLogs(c *fiber.Ctx) error {
	job, exists := h.service.GetJob(c.Params("id"))
	if !exists {
		return fiber.NewError(fiber.StatusNotFound, "job not found")
	}
	if job.LogPath == "" {
		return c.SendString("No logs for this job.")
	}
	logContent, err := os.ReadFile(job.LogPath)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read log file")
	}
	c.Set("Content-Type", "text/plain")
	return c.Send(logContent)
}

// HandleJobList lists jobs newest first, optionally filtered by ?status= and ?type=.
func (h *Handler) HandleJobList(c *fiber.Ctx) error {
	status := JobStatus(c.Query("status"))
	jobType := c.Query("type")
	baseURL := c.BaseURL()
	responses := make([]*JobResponse, 0)
	for _, job := range h.service.GetJobs() {
		if status != "" && job.Status != status {
			continue
		}
		if jobType != "" && job.Type != jobType {
			continue
		}
		responses = append(responses, &JobResponse{Job: job, Links: links(baseURL, job)})
	}
	return c.JSON(responses)
}

func (h *Handler) HandleCancelJob(c *fiber.Ctx) error {
	jobID := c.Params("id")
	if err := h.service.CancelJob(jobID); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}
	job, _ := h.service.GetJob(jobID)
	return c.JSON(&JobResponse{Job: job, Links: links(c.BaseURL(), job)})
}

func (h *Handler) HandleCleanupJobs(c *fiber.Ctx) error {
	h.service.CleanupOldJobs(24 * time.Hour)
	return c.JSON(fiber.Map{"status": "cleanup completed"})
}
