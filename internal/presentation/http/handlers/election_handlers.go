package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/application/services"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/elections"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
)

// CreateElectionRequest defines the structure for creating an election.
type CreateElectionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// ScheduleElectionRequest sets the voting window of a DRAFT election.
type ScheduleElectionRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
}

// ElectionHandlers contains the election HTTP handlers.
type ElectionHandlers struct {
	electionService *services.ElectionService
	logger          *logging.ChanneledLogger
}

// NewElectionHandlers creates election handlers with injected dependencies.
func NewElectionHandlers(electionService *services.ElectionService, logger *logging.ChanneledLogger) *ElectionHandlers {
	return &ElectionHandlers{
		electionService: electionService,
		logger:          logger,
	}
}

// CreateElection creates a DRAFT election.
func (h *ElectionHandlers) CreateElection(c *gin.Context) {
	var req CreateElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	election, err := h.electionService.Create(&elections.Election{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, election)
}

// ScheduleElection moves a DRAFT election to SCHEDULED. The activation sweep
// opens it when the start time arrives.
func (h *ElectionHandlers) ScheduleElection(c *gin.Context) {
	var req ScheduleElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	election, err := h.electionService.Schedule(c.Param("id"), req.StartTime, req.EndTime)
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "election not found"})
		case errors.Is(err, domainerrors.ErrInvalidStatus):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, election)
}

// GetElection returns one election by id.
func (h *ElectionHandlers) GetElection(c *gin.Context) {
	election, err := h.electionService.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "election not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, election)
}

// ListElections returns elections filtered by status.
func (h *ElectionHandlers) ListElections(c *gin.Context) {
	status := elections.Status(c.DefaultQuery("status", string(elections.StatusActive)))

	list, err := h.electionService.ListByStatus(status)
	if err != nil {
		if errors.Is(err, domainerrors.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"elections": list,
		"count":     len(list),
	})
}
