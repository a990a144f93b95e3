package services

import (
	"fmt"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/elections"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/repositories"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/security"
)

// ElectionService covers the election subset the credential and scheduling
// machinery needs: creation, scheduling and status queries. Ballot content
// and vote casting live elsewhere.
type ElectionService struct {
	electionRepo repositories.ElectionRepository
	logger       *logging.ChanneledLogger
	now          func() time.Time
}

// NewElectionService creates a new election application service.
func NewElectionService(electionRepo repositories.ElectionRepository, logger *logging.ChanneledLogger) *ElectionService {
	return &ElectionService{
		electionRepo: electionRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Create persists a new election in DRAFT.
func (s *ElectionService) Create(election *elections.Election) (*elections.Election, error) {
	if election == nil {
		return nil, fmt.Errorf("election cannot be nil")
	}
	if election.Title == "" {
		return nil, fmt.Errorf("election title cannot be empty")
	}

	now := s.now()
	election.ID = security.GenerateULID()
	election.Status = elections.StatusDraft
	election.CreatedAt = now
	election.UpdatedAt = now

	if err := s.electionRepo.Store(election); err != nil {
		return nil, fmt.Errorf("failed to store election: %w", err)
	}

	s.logger.Election().Info("Election created", "electionId", election.ID, "title", election.Title)
	return election, nil
}

// Schedule moves a DRAFT election to SCHEDULED with the given voting window.
// The activation sweep owns the later SCHEDULED to ACTIVE transition.
func (s *ElectionService) Schedule(electionID string, startTime, endTime time.Time) (*elections.Election, error) {
	if !endTime.After(startTime) {
		return nil, fmt.Errorf("election end time must be after start time")
	}

	election, err := s.electionRepo.FindByID(electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load election %s: %w", electionID, err)
	}
	if election == nil {
		return nil, domainerrors.ErrNotFound
	}
	if election.Status != elections.StatusDraft {
		return nil, fmt.Errorf("%w: cannot schedule election in status %s", domainerrors.ErrInvalidStatus, election.Status)
	}

	election.Status = elections.StatusScheduled
	election.StartTime = startTime
	election.EndTime = endTime
	election.UpdatedAt = s.now()

	if err := s.electionRepo.Update(election); err != nil {
		return nil, fmt.Errorf("failed to schedule election %s: %w", electionID, err)
	}

	s.logger.Election().Info("Election scheduled", "electionId", electionID, "startTime", startTime, "endTime", endTime)
	return election, nil
}

// GetByID loads a single election.
func (s *ElectionService) GetByID(electionID string) (*elections.Election, error) {
	election, err := s.electionRepo.FindByID(electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load election %s: %w", electionID, err)
	}
	if election == nil {
		return nil, domainerrors.ErrNotFound
	}
	return election, nil
}

// ListByStatus returns every election in the given status.
func (s *ElectionService) ListByStatus(status elections.Status) ([]*elections.Election, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domainerrors.ErrInvalidStatus, status)
	}

	list, err := s.electionRepo.FindByStatus(status)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections by status: %w", err)
	}
	return list, nil
}

// CountByStatus returns the per-status election counts for dashboards.
func (s *ElectionService) CountByStatus() (map[elections.Status]int, error) {
	counts, err := s.electionRepo.CountByStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to count elections: %w", err)
	}
	return counts, nil
}
