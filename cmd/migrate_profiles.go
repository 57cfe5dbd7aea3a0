package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateProfilesCmd = &cobra.Command{
	Use:   "migrate-profiles",
	Short: "Copy legacy Users profiles into the users collection",
	Long: `Copy every profile document from the legacy "Users" collection into
"users". Profiles that already exist in "users" are kept as they are.
Only available with the firestore store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadServices(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if s.firestore == nil {
			return errors.New("migrate-profiles requires STORE_DRIVER=firestore")
		}

		copied, err := s.firestore.MigrateLegacyProfiles(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to migrate profiles: %w", err)
		}
		s.log.WithField("copied", copied).Info("legacy profiles migrated")
		return nil
	},
}
