package service

import (
	"context"
	"errors"
	"fmt"

	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/repository"
	"go-cyclecount-ws/pkg/logger"

	"gorm.io/gorm"
)

type SeedOptions struct {
	AdminUsername string
	AdminPassword string
}

// SeedDefaults creates the default privileges and roles, grants each role its default
// privileges once, and creates the supervisor account when a password is configured.
// Running it again is a no-op.
func SeedDefaults(ctx context.Context, repos *repository.Repositories, opts SeedOptions, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	if err := repos.Privileges.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed privileges: %w", err)
	}
	if err := repos.Roles.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	for code, privilegeCodes := range model.DefaultRolePrivileges {
		role, err := repos.Roles.FindByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("load role %s: %w", code, err)
		}
		if len(role.Privileges) > 0 || len(privilegeCodes) == 0 {
			continue
		}
		privileges, err := repos.Privileges.FindByCodes(ctx, privilegeCodes)
		if err != nil {
			return err
		}
		if err := repos.Roles.ReplacePrivileges(ctx, role, privileges); err != nil {
			return fmt.Errorf("assign privileges to %s: %w", code, err)
		}
		log.Info(log.WithField(ctx, "role", code), "role privileges assigned")
	}

	if opts.AdminUsername == "" || opts.AdminPassword == "" {
		return nil
	}
	_, err := repos.Users.FindByUsername(ctx, opts.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	role, err := repos.Roles.FindByCode(ctx, model.RoleSupervisor)
	if err != nil {
		return fmt.Errorf("load supervisor role: %w", err)
	}
	admin := &model.User{
		Username: opts.AdminUsername,
		FullName: "Supervisor",
		RoleID:   &role.ID,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(opts.AdminPassword); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := repos.Users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Info(log.WithField(ctx, "username", admin.Username), "supervisor account created")
	return nil
}
