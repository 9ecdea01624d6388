package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gurkanbulca/storeflow/internal/database"
	"github.com/gurkanbulca/storeflow/internal/repository"
	"github.com/gurkanbulca/storeflow/pkg/security"
)

// eventsCmd implements 'storectl events'.
func eventsCmd() *cobra.Command {
	var eventType string
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent access audit events, newest first",
		RunE: func(_ *cobra.Command, _ []string) error {
			if eventType != "" {
				parsed, err := security.ParseEventType(eventType)
				if err != nil {
					return err
				}
				eventType = parsed
			}

			return withDB(func(ctx context.Context, db *database.DB) error {
				events, err := repository.NewSecurityEventRepository(db).ListRecent(ctx, eventType, limit)
				if err != nil {
					return err
				}
				return printJSON(events)
			})
		},
	}
	cmd.Flags().StringVar(&eventType, "type", "", "Only show one event type (token_rejected, actor_unknown, actor_inactive, permission_denied)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events, 0 for all")
	return cmd
}
