// Package store persists the allow-list of authorized users, the audit log of file operations
// and bug reports. It works on MySQL and on an embedded SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/contacts-converter/internal/model"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Audit log status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusEmpty   = "empty"
)

// ErrOwnerProtected is returned when someone tries to remove the owner from the allow-list.
var ErrOwnerProtected = errors.New("the owner cannot be removed")

// Store is a handle to the database with all prepared statements.
type Store struct {
	db      *sqlx.DB
	log     *zap.Logger
	ownerId int64

	insertUser        *sqlx.NamedStmt
	selectUserWhereId *sqlx.Stmt
	deleteUserWhereId *sqlx.Stmt
	insertOperation   *sqlx.NamedStmt
	insertBugReport   *sqlx.NamedStmt
}

// MySQLDSN builds the data source name for a MySQL database.
func MySQLDSN(user, password, host, name string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// SQLiteDSN builds the data source name for an SQLite database file.
func SQLiteDSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

// CreateDatabase opens a database connection with the given driver.
func CreateDatabase(driver string, dsn string) (*sql.DB, error) {
	if driver != DriverMySQL && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	return sqlDB, nil
}

// Setup wraps the sql database and prepares all statements. The database argument can be a real
// database for production use or a mock database within unit tests. The owner is always treated
// as authorized and can never be removed.
func Setup(sqlDB *sql.DB, driver string, ownerId int64, log *zap.Logger) (*Store, error) {
	s := &Store{
		db:      sqlx.NewDb(sqlDB, driver),
		log:     log,
		ownerId: ownerId,
	}
	var err error

	// Prepared statements offer a significant speed increase if executed many times.
	s.insertUser, err = s.db.PrepareNamed(insertIgnore(driver) + ` INTO authorized_users (user_id, username, first_name)
		VALUES (:user_id, :username, :first_name)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing user insert: %w", err)
	}
	s.selectUserWhereId, err = s.db.Preparex(`
		SELECT user_id FROM authorized_users WHERE user_id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing user select: %w", err)
	}
	s.deleteUserWhereId, err = s.db.Preparex(`
		DELETE FROM authorized_users WHERE user_id = ?
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing user delete: %w", err)
	}
	s.insertOperation, err = s.db.PrepareNamed(`
		INSERT INTO file_operations (user_id, operation_type, file_name, status)
		VALUES (:user_id, :operation_type, :file_name, :status)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing file operation insert: %w", err)
	}
	s.insertBugReport, err = s.db.PrepareNamed(`
		INSERT INTO bug_reports (user_id, username, bug_description)
		VALUES (:user_id, :username, :bug_description)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing bug report insert: %w", err)
	}
	return s, nil
}

// Close releases the prepared statements and the database connection.
func (s *Store) Close() error {
	for _, stmt := range []interface{ Close() error }{
		s.insertUser, s.selectUserWhereId, s.deleteUserWhereId, s.insertOperation, s.insertBugReport,
	} {
		stmt.Close()
	}
	return s.db.Close()
}

// EnsureOwner puts the owner on the allow-list if it is not there yet.
func (s *Store) EnsureOwner() error {
	owner := "owner"
	firstName := "Bot Owner"
	if _, err := s.AddUser(model.User{UserId: s.ownerId, Username: &owner, FirstName: &firstName}); err != nil {
		return fmt.Errorf("adding owner %d: %w", s.ownerId, err)
	}
	return nil
}

// IsOwner returns true if the user is the configured owner.
func (s *Store) IsOwner(userId int64) bool {
	return userId == s.ownerId
}

// IsAuthorized returns true if the user is on the allow-list.
func (s *Store) IsAuthorized(userId int64) (bool, error) {
	if s.IsOwner(userId) {
		return true, nil
	}
	var ids []int64
	if err := s.selectUserWhereId.Select(&ids, userId); err != nil {
		return false, fmt.Errorf("checking access of user %d: %w", userId, err)
	}
	return len(ids) > 0, nil
}

// AddUser puts a user on the allow-list. It returns false if the user was already there.
func (s *Store) AddUser(user model.User) (bool, error) {
	result, err := s.insertUser.Exec(&user)
	if err != nil {
		return false, fmt.Errorf("adding user %d: %w", user.UserId, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("adding user %d: %w", user.UserId, err)
	}
	return rowsAffected > 0, nil
}

// RemoveUser takes a user off the allow-list. It returns false if the user was not there.
func (s *Store) RemoveUser(userId int64) (bool, error) {
	if s.IsOwner(userId) {
		return false, ErrOwnerProtected
	}
	result, err := s.deleteUserWhereId.Exec(userId)
	if err != nil {
		return false, fmt.Errorf("removing user %d: %w", userId, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("removing user %d: %w", userId, err)
	}
	return rowsAffected > 0, nil
}

// CountUsers returns the number of users on the allow-list.
func (s *Store) CountUsers() (int64, error) {
	var count int64
	if err := s.db.Get(&count, `SELECT COUNT(*) FROM authorized_users`); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// ListUsers returns all users on the allow-list, most recently added first.
func (s *Store) ListUsers() ([]model.User, error) {
	users := []model.User{}
	err := s.db.Select(&users, `
		SELECT user_id, username, first_name, added_date
		FROM authorized_users
		ORDER BY added_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Record writes one entry to the audit log of file operations. Failures are logged and otherwise
// ignored, so that a broken audit log never fails a conversion.
func (s *Store) Record(userId int64, operationType string, fileName string, status string) {
	_, err := s.insertOperation.Exec(&model.FileOperation{
		UserId:        userId,
		OperationType: operationType,
		FileName:      fileName,
		Status:        status,
	})
	if err != nil {
		s.log.Warn("could not record file operation",
			zap.Int64("user", userId),
			zap.String("operation", operationType),
			zap.String("file", fileName),
			zap.String("status", status),
			zap.Error(err))
	}
}

// RecordBugReport stores a bug report.
func (s *Store) RecordBugReport(report model.BugReport) error {
	if _, err := s.insertBugReport.Exec(&report); err != nil {
		return fmt.Errorf("recording bug report of user %d: %w", report.UserId, err)
	}
	return nil
}

// Stats counts the file operations of a user by status.
func (s *Store) Stats(userId int64) (model.Stats, error) {
	var stats model.Stats
	err := s.db.Get(&stats, `
		SELECT
			COUNT(*) AS total_operations,
			COUNT(CASE WHEN status = 'success' THEN 1 END) AS successful_operations,
			COUNT(CASE WHEN status = 'error' THEN 1 END) AS failed_operations
		FROM file_operations
		WHERE user_id = ?
	`, userId)
	if err != nil {
		return model.Stats{}, fmt.Errorf("reading stats of user %d: %w", userId, err)
	}
	return stats, nil
}

// CleanupOldRecords deletes audit log entries older than the given number of days and returns
// how many were deleted.
func (s *Store) CleanupOldRecords(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	result, err := s.db.Exec(`DELETE FROM file_operations WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up file operations: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleaning up file operations: %w", err)
	}
	s.log.Info("cleaned up old file operations", zap.Int64("deleted", deleted), zap.Int("days", days))
	return deleted, nil
}

func insertIgnore(driver string) string {
	if driver == DriverSQLite {
		return "INSERT OR IGNORE"
	}
	return "INSERT IGNORE"
}
