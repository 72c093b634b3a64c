package main

import (
	"errors"
	"fmt"

	"github.com/rpggio/storytree/internal/credential"
	"github.com/rpggio/storytree/internal/domain/settings"
	"github.com/spf13/cobra"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the Clubhouse API token",
		Long: `The login command stores the Clubhouse API token in the settings database.

Without --token the configured credential helper is asked for the password of
the Clubhouse URL. The helper reads "url=<url>" on stdin and prints
"username=" and "password=" lines.

Example:
  storytree login --token $CLUBHOUSE_API_TOKEN
  STORYTREE_CREDENTIAL_HELPER="git credential fill" storytree login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context(), opts, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if token == "" {
				helper := credential.NewHelper(s.cfg.Credential.Helper, s.logger)
				creds, err := helper.Fill(cmd.Context(), s.cfg.Clubhouse.URL)
				if errors.Is(err, credential.ErrNoHelper) {
					return errors.New("no token given and no credential helper configured (set credential.helper or STORYTREE_CREDENTIAL_HELPER)")
				}
				if err != nil {
					return err
				}
				if creds == nil {
					return errors.New("login cancelled: the credential helper returned no password")
				}
				token = creds.Password
			}

			if err := s.app.Settings.Set(cmd.Context(), settings.KeyAPIToken, token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Clubhouse API token saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API token to store instead of asking the credential helper")
	return cmd
}
