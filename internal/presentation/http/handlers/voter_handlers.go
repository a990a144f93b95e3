// Package handlers provides HTTP handlers for the election backend.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/application/services"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/voters"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// CreateVoterRequest defines the structure for registering a single voter.
type CreateVoterRequest struct {
	ElectionID string         `json:"electionId" binding:"required"`
	Email      string         `json:"email" binding:"required,email"`
	UniqueID   string         `json:"uniqueId" binding:"required"`
	Name       string         `json:"name"`
	VoteWeight int            `json:"voteWeight"`
	Metadata   map[string]any `json:"metadata"`
}

// BulkImportRequest defines the structure for importing voters in bulk.
type BulkImportRequest struct {
	ElectionID string                 `json:"electionId" binding:"required"`
	Voters     []services.VoterImport `json:"voters" binding:"required"`
}

// LoginRequest carries the voter's presented credentials.
type LoginRequest struct {
	UniqueID  string `json:"uniqueId" binding:"required"`
	AccessKey string `json:"accessKey" binding:"required"`
}

// UpdateVoterStatusRequest carries a caller-driven status transition.
type UpdateVoterStatusRequest struct {
	Status voters.Status `json:"status" binding:"required"`
}

// VoterHandlers contains all voter-related HTTP handlers.
type VoterHandlers struct {
	voterService *services.VoterService
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewVoterHandlers creates voter handlers with injected dependencies.
func NewVoterHandlers(voterService *services.VoterService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *VoterHandlers {
	return &VoterHandlers{
		voterService: voterService,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// CreateVoter registers one voter and returns the one-time plaintext key.
func (h *VoterHandlers) CreateVoter(c *gin.Context) {
	start := time.Now()

	var req CreateVoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	voter, key, err := h.voterService.Create(&voters.Voter{
		ElectionID: req.ElectionID,
		Email:      req.Email,
		UniqueID:   req.UniqueID,
		Name:       req.Name,
		VoteWeight: req.VoteWeight,
		Metadata:   req.Metadata,
	}, "")
	if err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateVoter) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Voter().Info("Create voter request completed", "voterId", voter.ID, "duration", time.Since(start))
	c.JSON(http.StatusCreated, gin.H{
		"voter":     voter,
		"accessKey": key,
	})
}

// BulkImport registers many voters for one election, reporting per-row outcomes.
func (h *VoterHandlers) BulkImport(c *gin.Context) {
	start := time.Now()

	var req BulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.voterService.CreateBulk(req.ElectionID, req.Voters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Voter().Info("Bulk import request completed",
		"electionId", req.ElectionID, "created", len(result.Created), "duration", time.Since(start))
	c.JSON(http.StatusOK, result)
}

// Login verifies a voter credential and mints a session token. Failures are
// uniform regardless of which part of the credential was wrong.
func (h *VoterHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	voter, token, err := h.voterService.VerifyCredential(req.UniqueID, req.AccessKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": domainerrors.ErrAuth.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"voter": voter,
	})
}

// GetVoter returns one voter by id.
func (h *VoterHandlers) GetVoter(c *gin.Context) {
	voter, err := h.voterService.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voter not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, voter)
}

// ListVoters returns every voter of an election.
func (h *VoterHandlers) ListVoters(c *gin.Context) {
	list, err := h.voterService.ListByElection(c.Param("electionId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"voters": list,
		"count":  len(list),
	})
}

// UpdateStatus applies a caller-driven voter status transition.
func (h *VoterHandlers) UpdateStatus(c *gin.Context) {
	var req UpdateVoterStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.voterService.UpdateStatus(c.Param("id"), req.Status); err != nil {
		if errors.Is(err, domainerrors.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, domainerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voter not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// ReissueKey mints and returns a fresh access key for a voter.
func (h *VoterHandlers) ReissueKey(c *gin.Context) {
	key, err := h.voterService.ReissueKey(c.Param("id"))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voter not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessKey": key})
}

// DeleteVoter hard-deletes a voter.
func (h *VoterHandlers) DeleteVoter(c *gin.Context) {
	if err := h.voterService.Delete(c.Param("id")); err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voter not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
