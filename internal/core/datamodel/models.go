package datamodel

import (
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/file"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/notification"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/rbac"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/twofactor"
	"github.com/frahmantamala/rbac-api/internal/core/datamodel/user"
)

// Models lists every table model in dependency order, for AutoMigrate in tests.
func Models() []interface{} {
	return []interface{}{
		&rbac.Permission{},
		&rbac.Role{},
		&user.User{},
		&twofactor.TwoFactorAuth{},
		&notification.Notification{},
		&notification.PushToken{},
		&file.File{},
	}
}
