package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BallotDesk/ballotdesk-go/internal/domain/entities/voters"
	domainerrors "github.com/BallotDesk/ballotdesk-go/internal/domain/errors"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/memory"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/security"
)

const testSecret = "unit-test-encryption-secret"

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(logging.TestLoggerConfig())
	require.NoError(t, err)
	return logger
}

func newVoterService(t *testing.T) (*VoterService, *memory.VoterStore, *memory.ElectionStore) {
	t.Helper()
	voterStore := memory.NewVoterStore()
	electionStore := memory.NewElectionStore()
	svc := NewVoterService(voterStore, electionStore, nil, newTestLogger(t), performance.NewTracker(performance.DefaultTrackerConfig()), testSecret)
	return svc, voterStore, electionStore
}

func TestVoterCreateMintsCredential(t *testing.T) {
	svc, _, _ := newVoterService(t)

	voter, key, err := svc.Create(&voters.Voter{
		ElectionID: "e1",
		Email:      "alice@example.com",
		UniqueID:   "V100",
		Name:       "Alice",
	}, "")
	require.NoError(t, err)

	assert.Len(t, key, 10)
	assert.NotEmpty(t, voter.ID)
	assert.Equal(t, voters.StatusPending, voter.Status)
	assert.Equal(t, 1, voter.VoteWeight)
	assert.Equal(t, security.HashKey(key), voter.KeyHash)
	assert.Contains(t, voter.StoredKey, ":")
	assert.NotContains(t, voter.StoredKey, key)

	plaintext, err := security.DecryptKey(voter.StoredKey, testSecret)
	require.NoError(t, err)
	assert.Equal(t, key, plaintext)
}

func TestVoterCreateRejectsDuplicates(t *testing.T) {
	svc, _, _ := newVoterService(t)

	_, _, err := svc.Create(&voters.Voter{ElectionID: "e1", Email: "alice@example.com", UniqueID: "V100"}, "")
	require.NoError(t, err)

	_, _, err = svc.Create(&voters.Voter{ElectionID: "e1", Email: "ALICE@example.com", UniqueID: "V999"}, "")
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateVoter)

	_, _, err = svc.Create(&voters.Voter{ElectionID: "e1", Email: "bob@example.com", UniqueID: "v100"}, "")
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateVoter)

	// Same identity under a different election is fine.
	_, _, err = svc.Create(&voters.Voter{ElectionID: "e2", Email: "alice@example.com", UniqueID: "V100"}, "")
	assert.NoError(t, err)
}

func TestVerifyCredentialNormalizesInput(t *testing.T) {
	svc, _, _ := newVoterService(t)

	_, _, err := svc.Create(&voters.Voter{ElectionID: "e1", Email: "alice@example.com", UniqueID: "V100"}, "AB23 cd89")
	require.NoError(t, err)

	// Case-insensitive id, whitespace- and case-insensitive key.
	voter, token, err := svc.VerifyCredential("v100", "ab23cd89")
	require.NoError(t, err)
	assert.Equal(t, "V100", voter.UniqueID)
	assert.NotEmpty(t, token)

	_, _, err = svc.VerifyCredential("v100", "ab23cd88")
	assert.ErrorIs(t, err, domainerrors.ErrAuth)

	_, _, unknownErr := svc.VerifyCredential("no-such-voter", "ab23cd89")
	assert.ErrorIs(t, unknownErr, domainerrors.ErrAuth)
	// Unknown id and bad key are indistinguishable.
	assert.Equal(t, err.Error(), unknownErr.Error())
}

func TestVerifyCredentialSelfHeal(t *testing.T) {
	svc, voterStore, _ := newVoterService(t)

	storedKey, err := security.EncryptKey("AB23CD89EF", testSecret)
	require.NoError(t, err)

	// Legacy row: encrypted key present, lookup hash never computed.
	require.NoError(t, voterStore.Store(&voters.Voter{
		ID:         "legacy-1",
		ElectionID: "e1",
		Email:      "legacy@example.com",
		UniqueID:   "L100",
		Status:     voters.StatusActive,
		VoteWeight: 1,
		StoredKey:  storedKey,
	}))

	_, _, err = svc.VerifyCredential("L100", "ab23 cd89 ef")
	require.NoError(t, err)

	healed, err := voterStore.FindByID("legacy-1")
	require.NoError(t, err)
	assert.Equal(t, security.HashKey("AB23CD89EF"), healed.KeyHash)

	// Break the ciphertext: the second login must succeed purely via the
	// persisted hash, without touching decryption.
	require.NoError(t, voterStore.UpdateKey("legacy-1", "zz:zz", healed.KeyHash))
	_, _, err = svc.VerifyCredential("L100", "AB23CD89EF")
	assert.NoError(t, err)
}

func TestVerifyCredentialSelfHealRejectsUndecryptable(t *testing.T) {
	svc, voterStore, _ := newVoterService(t)

	require.NoError(t, voterStore.Store(&voters.Voter{
		ID:         "legacy-2",
		ElectionID: "e1",
		Email:      "broken@example.com",
		UniqueID:   "L200",
		Status:     voters.StatusActive,
		VoteWeight: 1,
		StoredKey:  "nothex:nothex",
	}))

	_, _, err := svc.VerifyCredential("L200", "ANYKEY2345")
	assert.ErrorIs(t, err, domainerrors.ErrAuth)
}

func TestUpdateStatus(t *testing.T) {
	svc, voterStore, _ := newVoterService(t)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	voter, _, err := svc.Create(&voters.Voter{ElectionID: "e1", Email: "alice@example.com", UniqueID: "V100"}, "")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(voter.ID, voters.StatusVerified))
	stored, err := voterStore.FindByID(voter.ID)
	require.NoError(t, err)
	assert.Equal(t, voters.StatusVerified, stored.Status)
	require.NotNil(t, stored.VerifiedAt)
	firstVerifiedAt := *stored.VerifiedAt

	// Re-entering VERIFIED keeps the original stamp.
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, svc.UpdateStatus(voter.ID, voters.StatusVerified))
	stored, err = voterStore.FindByID(voter.ID)
	require.NoError(t, err)
	assert.True(t, stored.VerifiedAt.Equal(firstVerifiedAt))

	err = svc.UpdateStatus(voter.ID, voters.Status("ARCHIVED"))
	assert.ErrorIs(t, err, domainerrors.ErrInvalidStatus)
}

func TestReissueKeyInvalidatesOldCredential(t *testing.T) {
	svc, _, _ := newVoterService(t)

	voter, oldKey, err := svc.Create(&voters.Voter{ElectionID: "e1", Email: "alice@example.com", UniqueID: "V100"}, "")
	require.NoError(t, err)

	newKey, err := svc.ReissueKey(voter.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, newKey)

	_, _, err = svc.VerifyCredential("V100", oldKey)
	assert.ErrorIs(t, err, domainerrors.ErrAuth)

	_, _, err = svc.VerifyCredential("V100", newKey)
	assert.NoError(t, err)
}

func TestCreateBulkReportsRowOutcomes(t *testing.T) {
	svc, _, _ := newVoterService(t)

	result, err := svc.CreateBulk("e1", []VoterImport{
		{Email: "a@example.com", UniqueID: "V1"},
		{Email: "b@example.com", UniqueID: "V2"},
		{Email: "a@example.com", UniqueID: "V3"}, // duplicate email within the batch
	})
	require.NoError(t, err)

	assert.Len(t, result.Created, 2)
	assert.Equal(t, []string{"V3"}, result.Duplicates)
	assert.Empty(t, result.Failed)

	// Every surviving row carries its own freshly minted credential.
	assert.NotEmpty(t, result.Created[0].KeyHash)
	assert.NotEmpty(t, result.Created[1].KeyHash)
	assert.NotEqual(t, result.Created[0].KeyHash, result.Created[1].KeyHash)
}
