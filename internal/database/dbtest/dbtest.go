// Package dbtest opens a migrated SQLite database for tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"invoicing-system/internal/database"
	"invoicing-system/internal/database/models"
)

// New returns a database backed by a file in t.TempDir. Write transactions start
// with BEGIN IMMEDIATE, so concurrent writers queue up the way row locks make them
// queue on Postgres.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_foreign_keys=1",
		filepath.Join(t.TempDir(), "invoicing.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func CreateUser(t testing.TB, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		FullName: username,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func CreateClient(t testing.TB, db *gorm.DB, userID int64, name string) models.Client {
	t.Helper()
	client := models.Client{UserID: userID, Name: name, CompanyName: name + " Corp"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}
