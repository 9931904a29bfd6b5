//go:build !protogen

package roster

import (
	"context"

	"github.com/printdesk/printdesk/services/scheduling-service/internal/model"
)

// Provider fetches the live staff roster from the people service. The default
// build has no generated client; callers fall back to the Postgres snapshot
// when NewProvider returns nil.
type Provider interface {
	ListStaff(ctx context.Context) ([]model.StaffMember, error)
}

func NewProvider(_ string) (Provider, error) {
	return nil, nil
}
