// Package db opens the database connection and keeps the schema current
package db

import (
	"fmt"
	"os"

	"github.com/mayurbijarniya/nutriai/internal/model"
	"github.com/mayurbijarniya/nutriai/pkg/util"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func New() (*gorm.DB, error) {
	var dial gorm.Dialector

	switch viper.GetString("db.driver") {
	case "postgres":
		dial = postgres.Open(viper.GetString("db.dsn"))
	case "sqlite":
		dsn := viper.GetString("db.dsn")
		if dsn == "" {
			dsn = "database.db"
		}

		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() {
			if _, err := os.Stat(dsn); os.IsNotExist(err) {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", dsn)
			}
		}

		dial = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db.driver %q", viper.GetString("db.driver"))
	}

	db, err := gorm.Open(dial)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	err = db.AutoMigrate(
		model.User{},
		model.Session{},
		model.LoginRecord{},
		model.Analysis{},
		model.UsageCounter{},
		model.ShareLink{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}
