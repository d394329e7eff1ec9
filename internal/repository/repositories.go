package repository

import "gorm.io/gorm"

// Repositories bundles every repository over one connection.
type Repositories struct {
	Locations     LocationRepository
	Products      ProductRepository
	Inventory     InventoryRepository
	Sessions      CountSessionRepository
	Counts        IndividualCountRepository
	Modifications ModificationRepository
	Users         UserRepository
	Roles         RoleRepository
	Privileges    PrivilegeRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Locations:     NewLocationRepo(db),
		Products:      NewProductRepo(db),
		Inventory:     NewInventoryRepo(db),
		Sessions:      NewCountSessionRepo(db),
		Counts:        NewIndividualCountRepo(db),
		Modifications: NewModificationRepo(db),
		Users:         NewUserRepo(db),
		Roles:         NewRoleRepo(db),
		Privileges:    NewPrivilegeRepo(db),
	}
}
