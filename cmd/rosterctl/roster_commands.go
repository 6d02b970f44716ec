package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rostersync/internal/roster/models"
	rosterservice "rostersync/internal/roster/service"
	"rostersync/pkg/requestcontext"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		venue string
		file  string
		week  string
		actor string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a roster image as the next version of its week",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := ingestRequest(venue, file, week)
			if err != nil {
				return err
			}
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, err := a.Ingestion(cmd.Context())
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if actor != "" {
				runCtx = requestcontext.WithActor(runCtx, actor)
			}
			res, err := svc.Ingest(runCtx, req)
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, res)
			}
			printIngestResult(cmd, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&venue, "venue", "", "Venue id (required)")
	cmd.Flags().StringVar(&file, "file", "", "Roster image URL (required)")
	cmd.Flags().StringVar(&week, "week", "", "Any date in the roster's week, YYYY-MM-DD")
	cmd.Flags().StringVar(&actor, "actor", "", "Recorded as the uploader of the new version")
	return cmd
}

func ingestRequest(venue, file, week string) (rosterservice.IngestRequest, error) {
	venueID, err := uuid.Parse(strings.TrimSpace(venue))
	if err != nil {
		return rosterservice.IngestRequest{}, errors.New("--venue must be a UUID")
	}
	if strings.TrimSpace(file) == "" {
		return rosterservice.IngestRequest{}, errors.New("--file is required")
	}
	req := rosterservice.IngestRequest{VenueID: venueID, FileURL: strings.TrimSpace(file)}
	if week != "" {
		d, err := models.ParseDate(week)
		if err != nil {
			return rosterservice.IngestRequest{}, fmt.Errorf("--week: %w", err)
		}
		req.WeekHint = &d
	}
	return req, nil
}

func printIngestResult(cmd *cobra.Command, res *rosterservice.IngestResult) {
	out := cmd.OutOrStdout()
	status := "created"
	if res.Duplicate {
		status = "unchanged (duplicate upload)"
	}
	fmt.Fprintf(out, "Roster %s version %d for week of %s: %s\n", res.RosterID, res.Version, res.WeekStart, status)
	fmt.Fprintln(out, renderTable(
		[]string{"Inserted", "Changed", "Unchanged", "Removed", "Matched", "Unmatched"},
		[][]string{{
			strconv.Itoa(res.Stats.Inserted),
			strconv.Itoa(res.Stats.Changed),
			strconv.Itoa(res.Stats.Unchanged),
			strconv.Itoa(res.Stats.Removed),
			strconv.Itoa(res.Stats.Matched),
			strconv.Itoa(res.Stats.UnmatchedCount),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	if len(res.UnmatchedNames) == 0 {
		return
	}
	rows := make([][]string, 0, len(res.UnmatchedNames))
	for _, name := range res.UnmatchedNames {
		rows = append(rows, []string{name})
	}
	fmt.Fprintln(out, "Unmatched names need manual reconciliation:")
	fmt.Fprintln(out, renderTable([]string{"Name"}, rows, nil))
}

func newVersionsCommand(ctx *commandContext) *cobra.Command {
	var (
		venue string
		week  string
	)
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List the stored versions of a venue's week",
		RunE: func(cmd *cobra.Command, args []string) error {
			venueID, err := uuid.Parse(strings.TrimSpace(venue))
			if err != nil {
				return errors.New("--venue must be a UUID")
			}
			d, err := models.ParseDate(week)
			if err != nil {
				return fmt.Errorf("--week: %w", err)
			}
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			versions, err := a.Rosters().ListVersions(cmd.Context(), models.WeekKey{VenueID: venueID, WeekStart: d.WeekStart()})
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, versionRows(versions))
			}
			if len(versions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No versions stored for that week")
				return nil
			}
			rows := make([][]string, 0, len(versions))
			for _, v := range versionRows(versions) {
				rows = append(rows, []string{
					strconv.Itoa(v.Version),
					v.ID,
					v.Status,
					strconv.Itoa(v.TotalShifts),
					strconv.Itoa(v.MatchedShifts),
					strconv.Itoa(v.UnmatchedShifts),
					v.UploadedBy,
					v.CreatedAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Version", "ID", "Status", "Shifts", "Matched", "Unmatched", "Uploaded by", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&venue, "venue", "", "Venue id (required)")
	cmd.Flags().StringVar(&week, "week", "", "Any date in the week, YYYY-MM-DD (required)")
	return cmd
}

type versionRow struct {
	ID              string `json:"id"`
	Version         int    `json:"version"`
	Status          string `json:"status"`
	TotalShifts     int    `json:"totalShifts"`
	MatchedShifts   int    `json:"matchedShifts"`
	UnmatchedShifts int    `json:"unmatchedShifts"`
	UploadedBy      string `json:"uploadedBy"`
	CreatedAt       string `json:"createdAt"`
}

func versionRows(versions []models.RosterVersion) []versionRow {
	rows := make([]versionRow, 0, len(versions))
	for _, v := range versions {
		rows = append(rows, versionRow{
			ID:              v.ID.String(),
			Version:         v.Version,
			Status:          string(v.Status),
			TotalShifts:     v.Totals.TotalShifts,
			MatchedShifts:   v.Totals.MatchedShifts,
			UnmatchedShifts: v.Totals.UnmatchedShifts,
			UploadedBy:      v.UploadedBy,
			CreatedAt:       v.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	return rows
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := a.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied")
			return nil
		},
	}
}
