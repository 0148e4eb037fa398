package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marcus/missionctl/internal/engine"
	"github.com/marcus/missionctl/internal/reprioritizer"
	"github.com/marcus/missionctl/internal/store"
	"github.com/marcus/missionctl/internal/tasks"
)

type taskIDRequest struct {
	TaskID string `json:"task_id"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handlePickup(c *gin.Context) {
	res, err := s.engine.Pickup(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleAssign(c *gin.Context) {
	var req taskIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, engine.ErrMissingTaskID)
		return
	}

	task, err := s.engine.Assign(c.Request.Context(), req.TaskID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "task": task})
}

func (s *Server) handleComplete(c *gin.Context) {
	var req taskIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, engine.ErrMissingTaskID)
		return
	}

	task, err := s.engine.Complete(c.Request.Context(), req.TaskID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "task": task})
}

func (s *Server) handleReprioritize(c *gin.Context) {
	results := s.reprio.Run(c.Request.Context(), s.flags())
	if results == nil {
		// Disabled flags and an in-flight run both produce nil; the
		// dashboard expects an empty list either way.
		results = []reprioritizer.Result{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleAgentState(c *gin.Context) {
	state, err := s.store.GetAgentState(c.Request.Context(), s.engine.AgentID())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// agentUpdateRequest carries a partial agent-state update: only the fields
// present in the body are written.
type agentUpdateRequest struct {
	Status              *string `json:"status"`
	CurrentModel        *string `json:"current_model"`
	AutoPickupEnabled   *bool   `json:"auto_pickup_enabled"`
	MaxConcurrentTasks  *int    `json:"max_concurrent_tasks"`
	DueDateUrgencyHours *int    `json:"due_date_urgency_hours"`
	NightlyStartHour    *int    `json:"nightly_start_hour"`
	RepickWindowMinutes *int    `json:"repick_window_minutes"`
}

func (s *Server) handleUpdateAgent(c *gin.Context) {
	var req agentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	state, err := s.store.GetAgentState(ctx, s.engine.AgentID())
	if err != nil {
		s.writeError(c, err)
		return
	}

	if req.Status != nil {
		status := tasks.AgentStatus(*req.Status)
		switch status {
		case tasks.StatusIdle, tasks.StatusActive, tasks.StatusThinking:
			state.Status = status
		default:
			s.badRequest(c, "unknown status: "+*req.Status)
			return
		}
	}
	if req.CurrentModel != nil {
		state.CurrentModel = *req.CurrentModel
	}
	if req.AutoPickupEnabled != nil {
		state.AutoPickupEnabled = *req.AutoPickupEnabled
	}
	if req.MaxConcurrentTasks != nil {
		if *req.MaxConcurrentTasks < 1 {
			s.badRequest(c, "max_concurrent_tasks must be at least 1")
			return
		}
		state.MaxConcurrentTasks = *req.MaxConcurrentTasks
	}
	if req.DueDateUrgencyHours != nil {
		if *req.DueDateUrgencyHours < 0 {
			s.badRequest(c, "due_date_urgency_hours must not be negative")
			return
		}
		state.DueDateUrgencyHours = *req.DueDateUrgencyHours
	}
	if req.NightlyStartHour != nil {
		if *req.NightlyStartHour < 0 || *req.NightlyStartHour > 23 {
			s.badRequest(c, "nightly_start_hour must be between 0 and 23")
			return
		}
		state.NightlyStartHour = *req.NightlyStartHour
	}
	if req.RepickWindowMinutes != nil {
		if *req.RepickWindowMinutes < 1 {
			s.badRequest(c, "repick_window_minutes must be at least 1")
			return
		}
		state.RepickWindowMinutes = *req.RepickWindowMinutes
	}
	state.UpdatedAt = time.Now().UTC()

	if err := s.store.SaveAgentState(ctx, state); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleListTasks(c *gin.Context) {
	list, err := s.store.ListTasks(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": list})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.store.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleListActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := s.store.ListActivity(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": list})
}

func (s *Server) writeError(c *gin.Context, err error) {
	code := engine.ErrorCode(err)
	if errors.Is(err, store.ErrAgentNotFound) {
		code = engine.CodeNotFound
	}

	status := http.StatusInternalServerError
	switch code {
	case engine.CodeBadRequest:
		status = http.StatusBadRequest
	case engine.CodeNotFound:
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"ok": false, "code": string(code), "error": err.Error()})
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "code": string(engine.CodeBadRequest), "error": msg})
}
