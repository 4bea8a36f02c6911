package server

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// InitialiseSystem checks the credential store is reachable and announces the first-admin
// bootstrap when it is still empty.
func (s *Server) InitialiseSystem(ctx context.Context) error {
	count, err := s.auth.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to count users: %w", err)
	}

	if count == 0 {
		log.Warn().Msg("No users registered yet: the first account to sign up becomes admin")
		return nil
	}
	log.Info().Int("users", count).Msg("Credential store ready")
	return nil
}
