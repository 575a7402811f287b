package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcq-practice-service/internal/config"
	"mcq-practice-service/internal/domain"
	"mcq-practice-service/internal/identity"
)

// NewImportCSVCmd loads MCQs from a CSV file straight into the store.
func NewImportCSVCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import-csv <file>",
		Short: "Import pre-approved MCQs from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := rt.service.ImportMCQsCSV(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			rt.logger.Info("csv imported",
				zap.String("file", args[0]),
				zap.Int("imported", report.Imported),
				zap.Int("skipped", report.Skipped),
			)
			return nil
		},
	}
}

// NewSeedCmd writes the sample categories and questions.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample categories and MCQs",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.service.Seed(cmd.Context())
			if err != nil {
				return err
			}
			rt.logger.Info("seeded", zap.Int("mcqs", report.Imported))
			return nil
		},
	}
}

// NewTokenCmd signs a development ID token with the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		name      string
		email     string
		anonymous bool
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <uid>",
		Short: "Issue a development ID token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ident := domain.Identity{UID: args[0], Method: domain.SignInPassword, IsAnonymous: anonymous}
			if anonymous {
				ident.Method = domain.SignInAnonymous
			}
			if name != "" {
				ident.DisplayName = &name
			}
			if email != "" {
				ident.Email = &email
			}
			if ttl == 0 {
				ttl = config.TTLDuration(cfg.Auth.TokenTTL, time.Hour)
			}
			token, err := identity.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer).Issue(ident, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "issue an anonymous-provider token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl)")
	return cmd
}
