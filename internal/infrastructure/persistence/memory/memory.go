// Package memory provides in-memory implementations of the domain
// repositories. They back service tests and local development and mirror
// the semantics of the SQL implementations, including unique-index
// rejection of duplicate voters.
package memory

import "time"

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	value := *t
	return &value
}
