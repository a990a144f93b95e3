package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/voters"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
)

// VoterStore is an in-memory VoterRepository.
type VoterStore struct {
	mu     sync.RWMutex
	voters map[string]*voters.Voter
}

// NewVoterStore creates an empty in-memory voter store.
func NewVoterStore() *VoterStore {
	return &VoterStore{voters: make(map[string]*voters.Voter)}
}

func (s *VoterStore) FindByID(id string) (*voters.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	voter, ok := s.voters[id]
	if !ok {
		return nil, nil
	}
	return copyVoter(voter), nil
}

func (s *VoterStore) FindByUniqueID(uniqueID string) (*voters.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(uniqueID))
	for _, voter := range s.voters {
		if strings.ToLower(voter.UniqueID) == needle {
			return copyVoter(voter), nil
		}
	}
	return nil, nil
}

func (s *VoterStore) FindByElection(electionID string) ([]*voters.Voter, error) {
	return s.filter(func(v *voters.Voter) bool {
		return v.ElectionID == electionID
	}), nil
}

func (s *VoterStore) FindByElectionAndStatus(electionID string, status voters.Status) ([]*voters.Voter, error) {
	return s.filter(func(v *voters.Voter) bool {
		return v.ElectionID == electionID && v.Status == status
	}), nil
}

func (s *VoterStore) FindEligibleForEndingReminder(electionID string) ([]*voters.Voter, error) {
	return s.filter(func(v *voters.Voter) bool {
		return v.ElectionID == electionID && v.Status == voters.StatusActive && !v.HasVoted
	}), nil
}

func (s *VoterStore) Store(voter *voters.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.voters {
		if existing.ElectionID != voter.ElectionID {
			continue
		}
		if strings.EqualFold(existing.Email, voter.Email) || strings.EqualFold(existing.UniqueID, voter.UniqueID) {
			return fmt.Errorf("%w: %s", domainerrors.ErrDuplicateVoter, voter.UniqueID)
		}
	}

	s.voters[voter.ID] = copyVoter(voter)
	return nil
}

func (s *VoterStore) UpdateStatus(id string, status voters.Status, verifiedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	voter, ok := s.voters[id]
	if !ok {
		return fmt.Errorf("%w: voter %s", domainerrors.ErrNotFound, id)
	}
	voter.Status = status
	if voter.VerifiedAt == nil && verifiedAt != nil {
		voter.VerifiedAt = copyTime(verifiedAt)
	}
	voter.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *VoterStore) UpdateKey(id string, storedKey, keyHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	voter, ok := s.voters[id]
	if !ok {
		return fmt.Errorf("%w: voter %s", domainerrors.ErrNotFound, id)
	}
	voter.StoredKey = storedKey
	voter.KeyHash = keyHash
	voter.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *VoterStore) UpdateKeyHash(id string, keyHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	voter, ok := s.voters[id]
	if !ok {
		return fmt.Errorf("%w: voter %s", domainerrors.ErrNotFound, id)
	}
	voter.KeyHash = keyHash
	voter.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *VoterStore) MarkKeyEmailSent(id string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	voter, ok := s.voters[id]
	if !ok {
		return fmt.Errorf("%w: voter %s", domainerrors.ErrNotFound, id)
	}
	voter.KeyEmailSent = true
	voter.KeyEmailSentAt = &sentAt
	return nil
}

func (s *VoterStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.voters[id]; !ok {
		return fmt.Errorf("%w: voter %s", domainerrors.ErrNotFound, id)
	}
	delete(s.voters, id)
	return nil
}

func (s *VoterStore) CountByStatus() (map[voters.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[voters.Status]int)
	for _, voter := range s.voters {
		counts[voter.Status]++
	}
	return counts, nil
}

func (s *VoterStore) filter(keep func(*voters.Voter) bool) []*voters.Voter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*voters.Voter
	for _, voter := range s.voters {
		if keep(voter) {
			result = append(result, copyVoter(voter))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func copyVoter(v *voters.Voter) *voters.Voter {
	dup := *v
	dup.VerificationExpiresAt = copyTime(v.VerificationExpiresAt)
	dup.VerifiedAt = copyTime(v.VerifiedAt)
	dup.KeyEmailSentAt = copyTime(v.KeyEmailSentAt)
	if v.Metadata != nil {
		dup.Metadata = make(map[string]any, len(v.Metadata))
		for k, val := range v.Metadata {
			dup.Metadata[k] = val
		}
	}
	return &dup
}
