package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rostersync/internal/identity/resolver"
	"rostersync/internal/roster/models"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var venue string
	cmd := &cobra.Command{
		Use:   "resolve NAME...",
		Short: "Show which identity each name would resolve to at a venue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			venueID, err := uuid.Parse(strings.TrimSpace(venue))
			if err != nil {
				return errors.New("--venue must be a UUID")
			}
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			identities, err := a.Identities().ListByVenue(cmd.Context(), venueID)
			if err != nil {
				return err
			}
			res, err := a.Resolver(cmd.Context())
			if err != nil {
				return err
			}
			shifts := make([]models.CanonicalShift, 0, len(args))
			for _, name := range args {
				shifts = append(shifts, models.CanonicalShift{EmployeeName: strings.TrimSpace(name)})
			}
			matches, err := res.ResolveBatch(cmd.Context(), shifts, identities)
			if err != nil {
				return err
			}

			names := make(map[uuid.UUID]string, len(identities))
			for _, ident := range identities {
				names[ident.ID] = ident.DisplayName
			}
			rows := make([]resolveRow, 0, len(matches))
			for _, m := range matches {
				row := resolveRow{Name: m.Shift.EmployeeName, Confidence: m.Confidence}
				if m.IdentityID != nil {
					row.IdentityID = m.IdentityID.String()
					row.DisplayName = names[*m.IdentityID]
				}
				rows = append(rows, row)
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, rows)
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				identity := "unmatched"
				if r.IdentityID != "" {
					identity = fmt.Sprintf("%s (%s)", r.DisplayName, r.IdentityID)
				}
				table = append(table, []string{r.Name, identity, fmt.Sprintf("%.3f", r.Confidence)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Identity", "Confidence"},
				table,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&venue, "venue", "", "Venue id (required)")
	return cmd
}

type resolveRow struct {
	Name        string  `json:"name"`
	IdentityID  string  `json:"identityId,omitempty"`
	DisplayName string  `json:"displayName,omitempty"`
	Confidence  float64 `json:"confidence"`
}

func newEmbedIdentitiesCommand(ctx *commandContext) *cobra.Command {
	var (
		venue string
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "embed-identities",
		Short: "Compute name embeddings for a venue's identities",
		Long: "Computes display name embeddings with the configured provider. " +
			"Identities that already have one are skipped unless --all is set. " +
			"Stored embeddings must come from the model used for resolution.",
		RunE: func(cmd *cobra.Command, args []string) error {
			venueID, err := uuid.Parse(strings.TrimSpace(venue))
			if err != nil {
				return errors.New("--venue must be a UUID")
			}
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			embedder, err := a.Embedder(cmd.Context())
			if err != nil {
				return err
			}
			identities, err := a.Identities().ListByVenue(cmd.Context(), venueID)
			if err != nil {
				return err
			}
			var todo []models.Identity
			for _, ident := range identities {
				if !ident.HasEmbedding() || all {
					todo = append(todo, ident)
				}
			}
			bar := newProgress(cmd.ErrOrStderr(), len(todo), "Embedding names")
			updated := 0
			for _, ident := range todo {
				vec, err := resolver.EmbedIdentity(cmd.Context(), embedder, ident)
				if err != nil {
					bar.finish()
					return fmt.Errorf("embed %s: %w", ident.DisplayName, err)
				}
				if err := a.Identities().UpsertEmbedding(cmd.Context(), ident.ID, vec); err != nil {
					bar.finish()
					return err
				}
				updated++
				bar.step()
			}
			bar.finish()
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d of %d identities using %s\n", updated, len(identities), embedder.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&venue, "venue", "", "Venue id (required)")
	cmd.Flags().BoolVar(&all, "all", false, "Recompute embeddings that already exist")
	return cmd
}
