package database

import (
	"context"
	"fmt"
	"log"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	"github.com/gurkanbulca/storeflow/internal/models"
	"github.com/gurkanbulca/storeflow/pkg/security"
)

const textSize = 2147483647

var (
	// UsersColumns holds the columns for the "users" table.
	UsersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "full_name", Type: field.TypeString},
		{Name: "email", Type: field.TypeString, Unique: true},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// UsersTable holds the schema information for the "users" table.
	UsersTable = &schema.Table{
		Name:       "users",
		Columns:    UsersColumns,
		PrimaryKey: []*schema.Column{UsersColumns[0]},
		Indexes: []*schema.Index{
			{Name: "user_is_active_created_at", Columns: []*schema.Column{UsersColumns[3], UsersColumns[4]}},
		},
	}

	// UserRolesColumns holds the columns for the "user_roles" table.
	UserRolesColumns = []*schema.Column{
		{Name: "user_id", Type: field.TypeUUID},
		{Name: "role", Type: field.TypeEnum, Enums: roleValues()},
		{Name: "is_active", Type: field.TypeBool, Default: true},
		{Name: "position", Type: field.TypeInt, Default: 0},
		{Name: "created_at", Type: field.TypeTime},
	}
	// UserRolesTable holds the schema information for the "user_roles" table.
	UserRolesTable = &schema.Table{
		Name:       "user_roles",
		Columns:    UserRolesColumns,
		PrimaryKey: []*schema.Column{UserRolesColumns[0], UserRolesColumns[1]},
		Indexes: []*schema.Index{
			{Name: "userrole_role_is_active", Columns: []*schema.Column{UserRolesColumns[1], UserRolesColumns[2]}},
		},
	}

	// CustomersColumns holds the columns for the "customers" table.
	CustomersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "full_name", Type: field.TypeString},
		{Name: "phone", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// CustomersTable holds the schema information for the "customers" table.
	CustomersTable = &schema.Table{
		Name:       "customers",
		Columns:    CustomersColumns,
		PrimaryKey: []*schema.Column{CustomersColumns[0]},
	}

	// TaskTypesColumns holds the columns for the "task_types" table.
	TaskTypesColumns = []*schema.Column{
		{Name: "code", Type: field.TypeString},
		{Name: "label", Type: field.TypeString},
		{Name: "requires_product", Type: field.TypeBool, Default: false},
		{Name: "is_active", Type: field.TypeBool, Default: true},
	}
	// TaskTypesTable holds the schema information for the "task_types" table.
	TaskTypesTable = &schema.Table{
		Name:       "task_types",
		Columns:    TaskTypesColumns,
		PrimaryKey: []*schema.Column{TaskTypesColumns[0]},
	}

	// ParametersColumns holds the columns for the "parameters" table.
	ParametersColumns = []*schema.Column{
		{Name: "name", Type: field.TypeString},
		{Name: "value", Type: field.TypeString, Size: textSize},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// ParametersTable holds the schema information for the "parameters" table.
	ParametersTable = &schema.Table{
		Name:       "parameters",
		Columns:    ParametersColumns,
		PrimaryKey: []*schema.Column{ParametersColumns[0]},
	}

	// TasksColumns holds the columns for the "tasks" table.
	TasksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "title", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "type", Type: field.TypeString},
		{Name: "priority", Type: field.TypeEnum, Enums: []string{"low", "medium", "high", "urgent"}},
		{Name: "status", Type: field.TypeString, Default: string(models.StatusPending)},
		{Name: "due_date", Type: field.TypeTime, Nullable: true},
		{Name: "notes", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "delivery_location", Type: field.TypeString, Nullable: true},
		{Name: "target_role", Type: field.TypeString, Nullable: true},
		{Name: "product_code", Type: field.TypeString, Nullable: true},
		{Name: "completed_at", Type: field.TypeTime, Nullable: true},
		{Name: "assigned_to_id", Type: field.TypeUUID, Nullable: true},
		{Name: "created_by_id", Type: field.TypeUUID},
		{Name: "customer_id", Type: field.TypeUUID, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// TasksTable holds the schema information for the "tasks" table.
	TasksTable = &schema.Table{
		Name:       "tasks",
		Columns:    TasksColumns,
		PrimaryKey: []*schema.Column{TasksColumns[0]},
		Indexes: []*schema.Index{
			// pool lookups
			{Name: "task_assigned_to_id_status", Columns: []*schema.Column{TasksColumns[12], TasksColumns[5]}},
			{Name: "task_target_role_status", Columns: []*schema.Column{TasksColumns[9], TasksColumns[5]}},
			{Name: "task_created_by_id", Columns: []*schema.Column{TasksColumns[13]}},
			{Name: "task_priority", Columns: []*schema.Column{TasksColumns[4]}},
			{Name: "task_completed_at", Columns: []*schema.Column{TasksColumns[11]}},
			{Name: "task_created_at", Columns: []*schema.Column{TasksColumns[15]}},
		},
	}

	// SecurityEventsColumns holds the columns for the "security_events" table.
	SecurityEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "actor_id", Type: field.TypeUUID, Nullable: true},
		{Name: "event_type", Type: field.TypeEnum, Enums: security.ValidEventTypes()},
		{Name: "severity", Type: field.TypeEnum, Enums: security.ValidSeverities(), Default: security.SeverityLow},
		{Name: "method", Type: field.TypeString, Nullable: true},
		{Name: "description", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "ip_address", Type: field.TypeString, Nullable: true},
		{Name: "user_agent", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// SecurityEventsTable holds the schema information for the "security_events" table.
	SecurityEventsTable = &schema.Table{
		Name:       "security_events",
		Columns:    SecurityEventsColumns,
		PrimaryKey: []*schema.Column{SecurityEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "securityevent_actor_id", Columns: []*schema.Column{SecurityEventsColumns[1]}},
			{Name: "securityevent_event_type", Columns: []*schema.Column{SecurityEventsColumns[2]}},
			{Name: "securityevent_created_at", Columns: []*schema.Column{SecurityEventsColumns[8]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		UsersTable,
		UserRolesTable,
		CustomersTable,
		TaskTypesTable,
		ParametersTable,
		TasksTable,
		SecurityEventsTable,
	}
)

func roleValues() []string {
	values := make([]string, len(models.AllRoles))
	for i, r := range models.AllRoles {
		values[i] = string(r)
	}
	return values
}

// Migrate creates or updates all tables.
func Migrate(ctx context.Context, db *DB) error {
	log.Println("[database] Running auto migration...")
	migrate, err := schema.NewMigrate(db.Ent,
		schema.WithDropIndex(true),
		schema.WithDropColumn(true),
	)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := migrate.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("run auto migration: %w", err)
	}
	log.Println("[database] Auto migration completed")
	return nil
}
