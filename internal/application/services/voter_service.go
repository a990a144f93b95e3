package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/voters"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/domain/repositories"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/email"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/security"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
)

// VoterImport is one row of a bulk voter import.
type VoterImport struct {
	Email      string         `json:"email"`
	UniqueID   string         `json:"uniqueId"`
	Name       string         `json:"name,omitempty"`
	VoteWeight int            `json:"voteWeight,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// BulkImportResult reports a bulk import row by row. Duplicate rows are
// recorded and skipped; they never abort the rest of the batch.
type BulkImportResult struct {
	Created    []*voters.Voter `json:"created"`
	Duplicates []string        `json:"duplicates"`
	Failed     []string        `json:"failed"`
}

// VoterService owns the voter lifecycle: credential minting and
// encryption-at-rest, hash-based login, status transitions and re-issuance.
type VoterService struct {
	voterRepo    repositories.VoterRepository
	electionRepo repositories.ElectionRepository
	emailService email.Service // nil when email is not configured
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
	secret       string
	now          func() time.Time
}

// NewVoterService creates a new voter application service. The secret is the
// credential encryption key; an empty secret fails every credential
// operation with a configuration error, so callers should resolve it through
// config.RequireVoterKeySecret at startup.
func NewVoterService(
	voterRepo repositories.VoterRepository,
	electionRepo repositories.ElectionRepository,
	emailService email.Service,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
	secret string,
) *VoterService {
	return &VoterService{
		voterRepo:    voterRepo,
		electionRepo: electionRepo,
		emailService: emailService,
		logger:       logger,
		perfTracker:  perfTracker,
		secret:       secret,
		now:          time.Now,
	}
}

// Create registers a voter, minting a fresh access key when plaintextKey is
// empty. The lookup hash and the encrypted form are always computed together
// before the insert. The returned string is the plaintext key, the only time
// it is ever available.
func (s *VoterService) Create(voter *voters.Voter, plaintextKey string) (*voters.Voter, string, error) {
	marker := s.perfTracker.StartOperation("voter_create")
	defer marker.Complete()

	if voter == nil {
		return nil, "", fmt.Errorf("voter cannot be nil")
	}
	if voter.ElectionID == "" {
		return nil, "", fmt.Errorf("voter election ID cannot be empty")
	}
	if voter.Email == "" {
		return nil, "", fmt.Errorf("voter email cannot be empty")
	}
	if voter.UniqueID == "" {
		return nil, "", fmt.Errorf("voter unique ID cannot be empty")
	}

	key := plaintextKey
	if key == "" {
		generated, err := security.GenerateVoterKey()
		if err != nil {
			marker.SetError(err)
			return nil, "", err
		}
		key = generated
	}

	storedKey, err := security.EncryptKey(key, s.secret)
	if err != nil {
		marker.SetError(err)
		return nil, "", fmt.Errorf("failed to encrypt voter key: %w", err)
	}

	token, err := security.GenerateVerificationToken()
	if err != nil {
		marker.SetError(err)
		return nil, "", err
	}

	now := s.now()
	voter.ID = security.GenerateULID()
	voter.KeyHash = security.HashKey(key)
	voter.StoredKey = storedKey
	voter.VerificationToken = token
	if voter.Status == "" {
		voter.Status = voters.StatusPending
	}
	if voter.VoteWeight < 1 {
		voter.VoteWeight = 1
	}
	voter.CreatedAt = now
	voter.UpdatedAt = now

	if err := s.voterRepo.Store(voter); err != nil {
		marker.SetError(err)
		if errors.Is(err, domainerrors.ErrDuplicateVoter) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("failed to store voter: %w", err)
	}

	s.logger.Voter().Info("Voter created", "voterId", voter.ID, "electionId", voter.ElectionID, "status", string(voter.Status))
	s.sendKeyEmail(voter, key)

	marker.SetSuccess(true)
	return voter, key, nil
}

// CreateBulk imports voters for one election, minting a key per row.
// Duplicate and failed rows are reported in the result without aborting the
// remaining rows.
func (s *VoterService) CreateBulk(electionID string, rows []VoterImport) (*BulkImportResult, error) {
	marker := s.perfTracker.StartOperation("voter_bulk_import")
	defer marker.Complete()
	marker.AddMetadata("rows", len(rows))

	if electionID == "" {
		return nil, fmt.Errorf("election ID cannot be empty")
	}

	result := &BulkImportResult{}
	for _, row := range rows {
		voter := &voters.Voter{
			ElectionID: electionID,
			Email:      row.Email,
			UniqueID:   row.UniqueID,
			Name:       row.Name,
			VoteWeight: row.VoteWeight,
			Metadata:   row.Metadata,
		}

		created, _, err := s.Create(voter, "")
		switch {
		case err == nil:
			result.Created = append(result.Created, created)
		case errors.Is(err, domainerrors.ErrDuplicateVoter):
			result.Duplicates = append(result.Duplicates, row.UniqueID)
		default:
			s.logger.Voter().Error("Bulk import row failed", "error", err, "uniqueId", row.UniqueID, "electionId", electionID)
			result.Failed = append(result.Failed, row.UniqueID)
		}
	}

	s.logger.Voter().Info("Bulk import finished",
		"electionId", electionID, "created", len(result.Created), "duplicates", len(result.Duplicates), "failed", len(result.Failed))
	marker.SetSuccess(true)
	return result, nil
}

// VerifyCredential authenticates a voter by unique ID and access key and
// mints a session token. Unknown IDs and key mismatches are rejected with
// the same uniform error. Legacy voters without a stored hash are healed in
// place on their first successful login.
func (s *VoterService) VerifyCredential(uniqueID, presentedKey string) (*voters.Voter, string, error) {
	marker := s.perfTracker.StartOperation("voter_verify_credential")
	defer marker.Complete()

	voter, err := s.voterRepo.FindByUniqueID(uniqueID)
	if err != nil || voter == nil {
		if err != nil {
			s.logger.Auth().Error("Voter lookup failed during login", "error", err)
		}
		marker.SetSuccess(false)
		return nil, "", domainerrors.ErrAuth
	}

	presentedHash := security.HashKey(presentedKey)

	if voter.KeyHash == "" {
		if !s.selfHealKeyHash(voter, presentedHash) {
			marker.SetSuccess(false)
			return nil, "", domainerrors.ErrAuth
		}
	} else if voter.KeyHash != presentedHash {
		marker.SetSuccess(false)
		return nil, "", domainerrors.ErrAuth
	}

	token, err := security.GenerateVoterToken(security.VoterSession{
		VoterID:    voter.ID,
		ElectionID: voter.ElectionID,
		UniqueID:   voter.UniqueID,
	}, config.JWTSecret, config.SessionTokenTTL)
	if err != nil {
		s.logger.Auth().Error("Session token mint failed", "error", err, "voterId", voter.ID)
		marker.SetError(err)
		return nil, "", domainerrors.ErrAuth
	}

	s.logger.Auth().Info("Voter authenticated", "voterId", voter.ID, "electionId", voter.ElectionID)
	marker.SetSuccess(true)
	return voter, token, nil
}

// selfHealKeyHash recovers a missing lookup hash from the decryptable stored
// key. On a successful compare the hash is persisted so later logins skip
// decryption entirely.
func (s *VoterService) selfHealKeyHash(voter *voters.Voter, presentedHash string) bool {
	plaintext, err := security.DecryptKey(voter.StoredKey, s.secret)
	if err != nil {
		s.logger.Auth().Error("Credential self-heal failed to decrypt stored key", "error", err, "voterId", voter.ID)
		return false
	}

	recoveredHash := security.HashKey(plaintext)
	if recoveredHash != presentedHash {
		return false
	}

	if err := s.voterRepo.UpdateKeyHash(voter.ID, recoveredHash); err != nil {
		// The login itself succeeded; the heal will be retried next time.
		s.logger.Auth().Error("Failed to persist healed key hash", "error", err, "voterId", voter.ID)
	} else {
		s.logger.Auth().Info("Voter key hash healed", "voterId", voter.ID)
	}
	voter.KeyHash = recoveredHash
	return true
}

// UpdateStatus moves a voter to newStatus. Transitions are caller-driven;
// only the status value itself is validated. Entering VERIFIED stamps
// verifiedAt if it was never set.
func (s *VoterService) UpdateStatus(voterID string, newStatus voters.Status) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("%w: %q", domainerrors.ErrInvalidStatus, newStatus)
	}

	var verifiedAt *time.Time
	if newStatus == voters.StatusVerified {
		now := s.now()
		verifiedAt = &now
	}

	if err := s.voterRepo.UpdateStatus(voterID, newStatus, verifiedAt); err != nil {
		return fmt.Errorf("failed to update voter %s status: %w", voterID, err)
	}

	s.logger.Voter().Info("Voter status updated", "voterId", voterID, "status", string(newStatus))
	return nil
}

// ReissueKey mints a fresh access key for a voter, replacing both the
// encrypted form and the lookup hash in one write, and emails the new key.
// The returned plaintext is shown once and never persisted.
func (s *VoterService) ReissueKey(voterID string) (string, error) {
	marker := s.perfTracker.StartOperation("voter_reissue_key")
	defer marker.Complete()

	voter, err := s.voterRepo.FindByID(voterID)
	if err != nil {
		marker.SetError(err)
		return "", fmt.Errorf("failed to load voter %s: %w", voterID, err)
	}
	if voter == nil {
		return "", domainerrors.ErrNotFound
	}

	key, err := security.GenerateVoterKey()
	if err != nil {
		marker.SetError(err)
		return "", err
	}

	storedKey, err := security.EncryptKey(key, s.secret)
	if err != nil {
		marker.SetError(err)
		return "", fmt.Errorf("failed to encrypt voter key: %w", err)
	}

	if err := s.voterRepo.UpdateKey(voterID, storedKey, security.HashKey(key)); err != nil {
		marker.SetError(err)
		return "", fmt.Errorf("failed to persist reissued key: %w", err)
	}

	s.logger.Voter().Info("Voter key reissued", "voterId", voterID)
	s.sendKeyEmail(voter, key)

	marker.SetSuccess(true)
	return key, nil
}

// GetByID loads a single voter.
func (s *VoterService) GetByID(voterID string) (*voters.Voter, error) {
	voter, err := s.voterRepo.FindByID(voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load voter %s: %w", voterID, err)
	}
	if voter == nil {
		return nil, domainerrors.ErrNotFound
	}
	return voter, nil
}

// ListByElection returns every voter registered for an election.
func (s *VoterService) ListByElection(electionID string) ([]*voters.Voter, error) {
	list, err := s.voterRepo.FindByElection(electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters for election %s: %w", electionID, err)
	}
	return list, nil
}

// Delete hard-deletes a voter.
func (s *VoterService) Delete(voterID string) error {
	if err := s.voterRepo.Delete(voterID); err != nil {
		return fmt.Errorf("failed to delete voter %s: %w", voterID, err)
	}
	s.logger.Voter().Info("Voter deleted", "voterId", voterID)
	return nil
}

// sendKeyEmail mails the plaintext key to the voter and stamps the delivery
// tracking fields. Email failures are logged and swallowed; the voter row is
// already persisted and the key can be re-sent through re-issuance.
func (s *VoterService) sendKeyEmail(voter *voters.Voter, plaintextKey string) {
	if s.emailService == nil || voter.Email == "" {
		return
	}

	electionTitle := voter.ElectionID
	if election, err := s.electionRepo.FindByID(voter.ElectionID); err == nil && election != nil {
		electionTitle = election.Title
	}

	if err := s.emailService.SendVoterKeyEmail(voter.Email, voter.Name, electionTitle, plaintextKey, ""); err != nil {
		s.logger.Email().Error("Failed to send voter key email", "error", err, "voterId", voter.ID)
		return
	}

	sentAt := s.now()
	if err := s.voterRepo.MarkKeyEmailSent(voter.ID, sentAt); err != nil {
		s.logger.Email().Error("Failed to record key email delivery", "error", err, "voterId", voter.ID)
		return
	}
	voter.KeyEmailSent = true
	voter.KeyEmailSentAt = &sentAt
}
