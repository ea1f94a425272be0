package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/shift-roster-api/internal/models"
	"github.com/noah-isme/shift-roster-api/internal/service"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

func parseWeek(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	date, err := weekcal.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a YYYY-MM-DD date", raw)
	}
	return date, nil
}

func newMigrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", rt.cfg.Database.Driver)
			return nil
		},
	}
}

func newMirrorCommand(rt *runtime) *cobra.Command {
	var from, to, actor string
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Copy one week's schedule into another week",
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, err := parseWeek(from)
			if err != nil {
				return err
			}
			target, err := weekcal.ParseDate(to)
			if err != nil {
				return fmt.Errorf("--to must be a YYYY-MM-DD date")
			}
			app, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Mirror.Mirror(cmd.Context(), source, target, actor)
			if result != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s -> %s: copied %d, added %d, failed %d\n",
					weekcal.FormatDate(result.SourceWeek), weekcal.FormatDate(result.TargetWeek),
					result.Copied, result.Added, result.Failed)
				for _, name := range result.RemovedStaff {
					fmt.Fprintf(out, "  removed from roster: %s\n", name)
				}
				for _, name := range result.AddedStaff {
					fmt.Fprintf(out, "  new on roster: %s\n", name)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Any date in the source week (defaults to this week)")
	cmd.Flags().StringVar(&to, "to", "", "Any date in the target week")
	cmd.Flags().StringVar(&actor, "actor", "rosterctl", "Name recorded in the change log")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSweepCommand(rt *runtime) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "sweep-batches",
		Short: "Mark batches stuck in progress as failed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			swept, err := app.Maintenance.SweepBatches(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d batch(es) marked failed\n", swept)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Stale window (defaults to SESSION_STALE_AFTER)")
	return cmd
}

func newCleanupCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-reports",
		Short: "Delete archived reports past REPORTS_RETENTION",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			removed, err := app.Maintenance.CleanupReports()
			if err != nil {
				return err
			}
			for _, name := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d report(s) removed\n", len(removed))
			return nil
		},
	}
}

func newExportCommand(rt *runtime) *cobra.Command {
	var week, format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a week's roster as CSV or PDF",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref, err := parseWeek(week)
			if err != nil {
				return err
			}
			parsed, err := service.ParseReportFormat(format)
			if err != nil {
				return err
			}
			app, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			file, err := app.Reports.Export(cmd.Context(), ref, parsed)
			if err != nil {
				return err
			}
			if out == "" {
				out = file.Filename
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(file.Data)
				return err
			}
			if err := os.WriteFile(out, file.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "Any date in the week (defaults to this week)")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, - for stdout")
	return cmd
}

func newTokenCommand(rt *runtime) *cobra.Command {
	var user, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth := service.NewAuthService(rt.logger, service.AuthConfig{
				AccessTokenSecret: rt.cfg.JWT.Secret,
				AccessTokenExpiry: rt.cfg.JWT.Expiration,
			})
			token, err := auth.IssueToken(user, models.UserRole(role))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User id carried by the token")
	cmd.Flags().StringVar(&role, "role", string(models.RoleEditor), "ADMIN, EDITOR or VIEWER")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
