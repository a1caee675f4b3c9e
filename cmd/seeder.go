package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/rbac-api/internal/auth"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/rbac"
	userDatamodel "github.com/frahmantamala/rbac-api/internal/core/datamodel/user"
	"github.com/frahmantamala/rbac-api/internal/notification"
	"github.com/frahmantamala/rbac-api/internal/permission"
	"github.com/frahmantamala/rbac-api/internal/role"
	"github.com/frahmantamala/rbac-api/internal/user"
)

const (
	adminRoleName = "admin"
	userRoleName  = "user"
)

var (
	seedAdminEmail    string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the permission catalogue, base roles and an admin",
	Long:  `Seed permissions for every guarded route, an "admin" system role holding all of them, a default "user" role and an admin account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()

		gdb, err := initGorm(db, cfg.App.Debug)
		if err != nil {
			return fmt.Errorf("failed to init orm: %w", err)
		}

		return seed(cmd.Context(), gdb, seedOptions{
			Clear:         clearData,
			AdminEmail:    seedAdminEmail,
			AdminPassword: seedAdminPassword,
			BCryptCost:    cfg.Security.BCryptCost,
			Logger:        slog.Default(),
		})
	},
}

type seedOptions struct {
	Clear         bool
	AdminEmail    string
	AdminPassword string
	BCryptCost    int
	Logger        *slog.Logger
}

type permissionSeed struct {
	Code        string
	Name        string
	Description string
}

// permissionCatalogue lists every code a route guard checks.
var permissionCatalogue = []permissionSeed{
	{user.CodeCreate, "Create users", "Create user accounts"},
	{user.CodeList, "List users", "List user accounts"},
	{user.CodeRead, "Read users", "View a user account"},
	{user.CodeUpdate, "Update users", "Edit users and their role and permission grants"},
	{user.CodeDelete, "Delete users", "Soft delete user accounts"},
	{role.CodeCreate, "Create roles", ""},
	{role.CodeList, "List roles", ""},
	{role.CodeRead, "Read roles", ""},
	{role.CodeUpdate, "Update roles", ""},
	{role.CodeDelete, "Delete roles", ""},
	{permission.CodeCreate, "Create permissions", ""},
	{permission.CodeList, "List permissions", ""},
	{permission.CodeRead, "Read permissions", ""},
	{permission.CodeUpdate, "Update permissions", ""},
	{permission.CodeDelete, "Delete permissions", ""},
	{notification.CodeSend, "Send notifications", "Broadcast in-app and push notifications"},
}

func seed(ctx context.Context, db *gorm.DB, opts seedOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.Default()
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Clear {
			if err := clearSeedData(tx); err != nil {
				return err
			}
			lg.Info("cleared existing data")
		}

		perms := make([]rbac.Permission, 0, len(permissionCatalogue))
		for _, p := range permissionCatalogue {
			var row rbac.Permission
			attrs := rbac.Permission{ID: uuid.NewString(), Name: p.Name, Description: p.Description}
			if err := tx.Where(rbac.Permission{Code: p.Code}).Attrs(attrs).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", p.Code, err)
			}
			perms = append(perms, row)
		}
		lg.Info("seeded permissions", "count", len(perms))

		var admin rbac.Role
		adminAttrs := rbac.Role{ID: uuid.NewString(), Description: "Full access", IsSystem: true}
		if err := tx.Where(rbac.Role{Name: adminRoleName}).Attrs(adminAttrs).FirstOrCreate(&admin).Error; err != nil {
			return fmt.Errorf("seed admin role: %w", err)
		}
		if err := tx.Model(&admin).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("grant admin permissions: %w", err)
		}

		if err := tx.Model(&rbac.Role{}).Where("name <> ? AND is_default = ?", userRoleName, true).Update("is_default", false).Error; err != nil {
			return fmt.Errorf("unset default role: %w", err)
		}
		var member rbac.Role
		memberAttrs := rbac.Role{ID: uuid.NewString(), Description: "Default role for new users", IsDefault: true, IsSystem: true}
		if err := tx.Where(rbac.Role{Name: userRoleName}).Attrs(memberAttrs).FirstOrCreate(&member).Error; err != nil {
			return fmt.Errorf("seed user role: %w", err)
		}
		if !member.IsDefault {
			if err := tx.Model(&member).Update("is_default", true).Error; err != nil {
				return fmt.Errorf("mark user role default: %w", err)
			}
		}
		lg.Info("seeded roles", "admin", admin.ID, "user", member.ID)

		if opts.AdminEmail == "" {
			return nil
		}
		email := auth.NormalizeEmail(opts.AdminEmail)

		var existing userDatamodel.User
		err := tx.Unscoped().Where("email = ?", email).Limit(1).Find(&existing).Error
		if err != nil {
			return fmt.Errorf("lookup admin user: %w", err)
		}
		if existing.ID == "" {
			hash, err := auth.HashPassword(opts.AdminPassword, opts.BCryptCost)
			if err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}
			existing = userDatamodel.User{
				ID:           uuid.NewString(),
				Email:        email,
				PasswordHash: hash,
				FirstName:    "Admin",
				LastName:     "User",
				IsActive:     true,
				IsVerified:   true,
			}
			if err := tx.Omit(clause.Associations).Create(&existing).Error; err != nil {
				return fmt.Errorf("create admin user: %w", err)
			}
			lg.Info("seeded admin user", "email", email)
		} else {
			lg.Info("admin user already exists; ensuring role", "email", email)
		}

		return tx.Table("user_roles").Clauses(clause.OnConflict{DoNothing: true}).Create(map[string]interface{}{
			"user_id": existing.ID,
			"role_id": admin.ID,
		}).Error
	})
}

// clearSeedData empties every table, join tables first.
func clearSeedData(tx *gorm.DB) error {
	for _, table := range []string{
		"user_permissions", "user_roles", "role_permissions",
		"files", "push_tokens", "notifications", "two_factor_auth",
		"users", "roles", "permissions",
	} {
		if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "admin@example.com", "admin account email (empty skips the account)")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "changeme123", "admin account password")
}
