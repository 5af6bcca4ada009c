package store

import (
	"database/sql"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS authorized_users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE,
		username VARCHAR(255),
		first_name VARCHAR(255),
		added_date DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS file_operations (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		operation_type VARCHAR(64) NOT NULL,
		file_name VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_file_operations_user_id (user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS bug_reports (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		username VARCHAR(255),
		bug_description TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS authorized_users (
		id INTEGER PRIMARY KEY,
		user_id INTEGER UNIQUE NOT NULL,
		username TEXT,
		first_name TEXT,
		added_date DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS file_operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		operation_type TEXT NOT NULL,
		file_name TEXT NOT NULL,
		status TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_file_operations_user_id ON file_operations(user_id)`,
	`CREATE TABLE IF NOT EXISTS bug_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		username TEXT,
		bug_description TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Schema returns the statements that create all tables for the given driver.
func Schema(driver string) ([]string, error) {
	switch driver {
	case DriverMySQL:
		return mysqlSchema, nil
	case DriverSQLite:
		return sqliteSchema, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// Migrate creates all tables that do not exist yet.
func Migrate(sqlDB *sql.DB, driver string) error {
	statements, err := Schema(driver)
	if err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := sqlDB.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
