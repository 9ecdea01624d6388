package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gurkanbulca/storeflow/internal/database"
	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/internal/repository"
	"github.com/gurkanbulca/storeflow/internal/settings"
	"github.com/gurkanbulca/storeflow/pkg/auth"
)

// actorCmd implements the 'storectl actor' command group.
func actorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actor",
		Short: "Manage store staff",
	}
	cmd.AddCommand(actorAddCmd(), actorShowCmd())
	return cmd
}

// actorAddCmd implements 'storectl actor add'.
func actorAddCmd() *cobra.Command {
	var email string
	var roles []string
	var inactive bool
	cmd := &cobra.Command{
		Use:   "add <full-name>",
		Short: "Add a staff member; the first --role is the primary role",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			actor := &models.Actor{FullName: args[0], Email: email, Active: !inactive}
			for _, raw := range roles {
				role, err := models.ParseRole(raw)
				if err != nil {
					return err
				}
				actor.Roles = append(actor.Roles, role)
			}

			return withDB(func(ctx context.Context, db *database.DB) error {
				if err := repository.NewActorRepository(db).Create(ctx, actor); err != nil {
					return err
				}
				return printJSON(actor)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (must be unique)")
	cmd.Flags().StringSliceVarP(&roles, "role", "r", nil, "Role key or display name, repeatable")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the account deactivated")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// actorShowCmd implements 'storectl actor show'.
func actorShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <actor-id>",
		Short: "Show a staff member and their active roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid actor id: %w", err)
			}
			return withDB(func(ctx context.Context, db *database.DB) error {
				actor, err := repository.NewActorRepository(db).GetByID(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(actor)
			})
		},
	}
}

// taskTypeCmd implements the 'storectl tasktype' command group.
func taskTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasktype",
		Short: "Manage the task type catalog",
	}
	cmd.AddCommand(taskTypeSetCmd())
	return cmd
}

// taskTypeSetCmd implements 'storectl tasktype set'.
func taskTypeSetCmd() *cobra.Command {
	var label string
	var requiresProduct, inactive bool
	cmd := &cobra.Command{
		Use:   "set <code>",
		Short: "Create or replace a task type",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			taskType := &models.TaskType{
				Code:            args[0],
				Label:           label,
				RequiresProduct: requiresProduct,
				Active:          !inactive,
			}
			if taskType.Label == "" {
				taskType.Label = taskType.Code
			}
			return withDB(func(ctx context.Context, db *database.DB) error {
				if err := repository.NewTaskTypeRepository(db).Upsert(ctx, taskType); err != nil {
					return err
				}
				return printJSON(taskType)
			})
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "Display label")
	cmd.Flags().BoolVar(&requiresProduct, "requires-product", false, "Tasks of this type must carry a product code")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Retire the type")
	return cmd
}

// paramCmd implements the 'storectl param' command group.
func paramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "param",
		Short: "Read and write runtime parameters",
	}
	cmd.AddCommand(paramGetCmd(), paramSetCmd())
	return cmd
}

// paramGetCmd implements 'storectl param get'.
func paramGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Print a parameter value",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db *database.DB) error {
				if args[0] == settings.AutoTaskAssignment {
					flags := newFlags(db)
					enabled, err := flags.AutoAssignmentEnabled(ctx)
					if err != nil {
						return err
					}
					fmt.Println(enabled)
					return nil
				}

				value, err := repository.NewParameterRepository(db).Get(ctx, args[0])
				if err != nil {
					if repository.IsNotFound(err) {
						return fmt.Errorf("parameter %s is not set", args[0])
					}
					return err
				}
				fmt.Println(value)
				return nil
			})
		},
	}
}

// paramSetCmd implements 'storectl param set'.
func paramSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Write a parameter value",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			name, value := args[0], args[1]
			return withDB(func(ctx context.Context, db *database.DB) error {
				if name == settings.AutoTaskAssignment {
					enabled, err := strconv.ParseBool(value)
					if err != nil {
						return fmt.Errorf("%s expects a boolean: %w", name, err)
					}
					return newFlags(db).Set(ctx, name, enabled)
				}
				return repository.NewParameterRepository(db).Set(ctx, name, value)
			})
		},
	}
}

func newFlags(db *database.DB) *settings.Flags {
	return settings.NewFlags(
		repository.NewParameterRepository(db),
		cfg.Dispatch.ParameterCacheTTL,
		map[string]bool{settings.AutoTaskAssignment: cfg.Dispatch.AutoTaskAssignment},
	)
}

// customerCmd implements the 'storectl customer' command group.
func customerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage customer records",
	}

	var phone string
	add := &cobra.Command{
		Use:   "add <full-name>",
		Short: "Add a customer and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db *database.DB) error {
				id, err := repository.NewCustomerRepository(db).Create(ctx, args[0], phone)
				if err != nil {
					return err
				}
				fmt.Println(id)
				return nil
			})
		},
	}
	add.Flags().StringVar(&phone, "phone", "", "Contact phone number")

	cmd.AddCommand(add)
	return cmd
}

// tokenCmd implements the 'storectl token' command group.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue access tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "issue <actor-id>",
		Short: "Issue an access token for an active staff member",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid actor id: %w", err)
			}

			return withDB(func(ctx context.Context, db *database.DB) error {
				actor, err := repository.NewActorRepository(db).GetByID(ctx, id)
				if err != nil {
					return err
				}
				if !actor.Active {
					return fmt.Errorf("actor %s is inactive", actor.ID)
				}

				tm := auth.NewTokenManager(cfg.JWT.AccessSecret, cfg.JWT.AccessTokenDuration, cfg.JWT.Issuer)
				token, expiresIn, err := tm.Issue(actor.ID)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"accessToken": token,
					"expiresIn":   expiresIn,
					"actor":       actor.FullName,
				})
			})
		},
	})
	return cmd
}
