// Package errors defines the typed domain errors shared across the
// BallotDesk core. Callers match them with errors.Is after unwrapping.
package errors

import "errors"

var (
	// ErrConfiguration is fatal: a required secret or setting is missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrDuplicateVoter is returned when an insert violates the
	// (electionId, email) or (electionId, uniqueId) uniqueness rule.
	ErrDuplicateVoter = errors.New("voter already exists for this election")

	// ErrDecryption is returned when stored ciphertext is malformed or
	// cannot be decrypted.
	ErrDecryption = errors.New("decryption failed")

	// ErrAuth is the uniform credential rejection. It never reveals
	// whether the voter id or the key was wrong.
	ErrAuth = errors.New("invalid credentials")

	// ErrBulkCreate wraps a persistence failure during notification fan-out.
	ErrBulkCreate = errors.New("bulk notification create failed")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStatus is returned when a status value outside the
	// enumerated set is supplied.
	ErrInvalidStatus = errors.New("invalid status")
)
