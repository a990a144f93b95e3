package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/elections"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
)

// ElectionStore is an in-memory ElectionRepository.
type ElectionStore struct {
	mu        sync.RWMutex
	elections map[string]*elections.Election
}

// NewElectionStore creates an empty in-memory election store.
func NewElectionStore() *ElectionStore {
	return &ElectionStore{elections: make(map[string]*elections.Election)}
}

func (s *ElectionStore) FindByID(id string) (*elections.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	election, ok := s.elections[id]
	if !ok {
		return nil, nil
	}
	return copyElection(election), nil
}

func (s *ElectionStore) FindByStatus(status elections.Status) ([]*elections.Election, error) {
	return s.filter(func(e *elections.Election) bool {
		return e.Status == status
	}), nil
}

func (s *ElectionStore) FindDueForActivation(now time.Time) ([]*elections.Election, error) {
	return s.filter(func(e *elections.Election) bool {
		return e.Status == elections.StatusScheduled && !e.StartTime.After(now)
	}), nil
}

func (s *ElectionStore) FindStartingWithin(now time.Time, window time.Duration) ([]*elections.Election, error) {
	limit := now.Add(window)
	return s.filter(func(e *elections.Election) bool {
		return e.Status == elections.StatusScheduled && e.StartTime.After(now) && !e.StartTime.After(limit)
	}), nil
}

func (s *ElectionStore) FindEndingWithin(now time.Time, window time.Duration) ([]*elections.Election, error) {
	limit := now.Add(window)
	return s.filter(func(e *elections.Election) bool {
		return e.Status == elections.StatusActive && e.EndTime.After(now) && !e.EndTime.After(limit)
	}), nil
}

func (s *ElectionStore) Store(election *elections.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elections[election.ID] = copyElection(election)
	return nil
}

func (s *ElectionStore) Update(election *elections.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[election.ID]; !ok {
		return fmt.Errorf("%w: election %s", domainerrors.ErrNotFound, election.ID)
	}
	s.elections[election.ID] = copyElection(election)
	return nil
}

func (s *ElectionStore) Activate(id string, startedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	election, ok := s.elections[id]
	if !ok || election.Status != elections.StatusScheduled {
		return false, nil
	}
	election.Status = elections.StatusActive
	election.StartedAt = &startedAt
	election.UpdatedAt = startedAt
	return true, nil
}

func (s *ElectionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[id]; !ok {
		return fmt.Errorf("%w: election %s", domainerrors.ErrNotFound, id)
	}
	delete(s.elections, id)
	return nil
}

func (s *ElectionStore) CountByStatus() (map[elections.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[elections.Status]int)
	for _, election := range s.elections {
		counts[election.Status]++
	}
	return counts, nil
}

func (s *ElectionStore) filter(keep func(*elections.Election) bool) []*elections.Election {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*elections.Election
	for _, election := range s.elections {
		if keep(election) {
			result = append(result, copyElection(election))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result
}

func copyElection(e *elections.Election) *elections.Election {
	dup := *e
	dup.StartedAt = copyTime(e.StartedAt)
	return &dup
}
