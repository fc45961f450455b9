package models

import (
	"bitbucket.org/tallerdigital/shopfloor_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&User{},
		&SupplyItem{},
		&Order{},
		&Task{},
		&Movement{},
		&Incident{},
	)
}
