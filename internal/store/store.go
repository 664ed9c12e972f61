package store

import (
	"bufio"
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contact-book/internal/model"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// schema holds the statements that create the contacts table.
//
//go:embed schema.sql
var schema string

// selectWhereIdQuery is shared by the prepared statement and the update transaction.
const selectWhereIdQuery = `SELECT id, name, phone, email FROM contacts WHERE id = ?`

// likeEscaper makes the LIKE wildcards of a search keyword match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Store gives access to the contacts table. All methods must be called from one goroutine at a time.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger

	// insert is a prepared statement for creating a contact on the database.
	insert *sqlx.NamedStmt

	// selectAll is a prepared statement for listing all contacts sorted by name.
	selectAll *sqlx.Stmt

	// search is a prepared statement for a case-insensitive substring search on all text columns.
	search *sqlx.Stmt

	// selectWhereId is a prepared statement for selecting the contact with a given id.
	selectWhereId *sqlx.Stmt

	// deleteWhereId is a prepared statement for deleting the contact with a given id.
	deleteWhereId *sqlx.Stmt
}

// Open opens the SQLite database file at path. Missing parent directories are created.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One process, one goroutine: a single connection keeps the prepared statements on it.
	sqlDB.SetMaxOpenConns(1)
	return sqlDB, nil
}

// New wraps the specified sql database, creates the contacts table if necessary, and prepares all
// statements. The database argument can be a real database for production use or a mock database
// within unit tests.
func New(sqlDB *sql.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		db:  sqlx.NewDb(sqlDB, "sqlite3"),
		log: logger.Named("store"),
	}
	ctx := context.Background()
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	if err := s.prepare(ctx); err != nil {
		s.closeStatements()
		return nil, err
	}
	return s, nil
}

// Initialize creates the contacts table if it does not exist yet. It is safe to call it on every
// startup.
func (s *Store) Initialize(ctx context.Context) error {
	scanner := bufio.NewScanner(strings.NewReader(schema))
	builder := strings.Builder{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			if _, err := s.db.ExecContext(ctx, builder.String()); err != nil {
				return fmt.Errorf("initialize schema: %w", err)
			}
			builder.Reset()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	s.log.Debug("schema initialized")
	return nil
}

func (s *Store) prepare(ctx context.Context) error {
	var err error
	s.insert, err = s.db.PrepareNamedContext(ctx, `
		INSERT INTO contacts (name, phone, email)
		VALUES (:name, :phone, :email)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	s.selectAll, err = s.db.PreparexContext(ctx, `
		SELECT id, name, phone, email FROM contacts ORDER BY name, id
	`)
	if err != nil {
		return fmt.Errorf("prepare select all: %w", err)
	}
	s.search, err = s.db.PreparexContext(ctx, `
		SELECT id, name, phone, email FROM contacts
		WHERE LOWER(name) LIKE LOWER(?) ESCAPE '\'
			OR LOWER(phone) LIKE LOWER(?) ESCAPE '\'
			OR LOWER(email) LIKE LOWER(?) ESCAPE '\'
		ORDER BY name, id
	`)
	if err != nil {
		return fmt.Errorf("prepare search: %w", err)
	}
	s.selectWhereId, err = s.db.PreparexContext(ctx, selectWhereIdQuery)
	if err != nil {
		return fmt.Errorf("prepare select by id: %w", err)
	}
	s.deleteWhereId, err = s.db.PreparexContext(ctx, `
		DELETE FROM contacts WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	return nil
}

// Close releases the prepared statements and the database.
func (s *Store) Close() error {
	s.closeStatements()
	return s.db.Close()
}

func (s *Store) closeStatements() {
	if s.insert != nil {
		_ = s.insert.Close()
	}
	for _, stmt := range []*sqlx.Stmt{s.selectAll, s.search, s.selectWhereId, s.deleteWhereId} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// Add stores a new contact and returns it with its newly assigned id. All values are trimmed; an
// empty email is stored as NULL.
func (s *Store) Add(ctx context.Context, name, phone, email string) (model.Contact, error) {
	contact := model.Contact{
		Name:  strings.TrimSpace(name),
		Phone: strings.TrimSpace(phone),
		Email: optional(email),
	}
	if contact.Name == "" || contact.Phone == "" {
		return model.Contact{}, ErrRequiredFields
	}
	result, err := s.insert.ExecContext(ctx, map[string]interface{}{
		"name":  contact.Name,
		"phone": contact.Phone,
		"email": nullable(contact.Email),
	})
	if err != nil {
		if isConstraintViolation(err) {
			s.log.Warn("insert rejected", zap.Error(err))
			return model.Contact{}, fmt.Errorf("%w: %v", ErrConstraint, err)
		}
		return model.Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Contact{}, fmt.Errorf("read new id: %w", err)
	}
	contact.Id = id
	s.log.Debug("contact added", zap.Int64("id", id))
	return contact, nil
}

// ListAll returns all contacts sorted by name. The result is empty if there are no contacts.
func (s *Store) ListAll(ctx context.Context) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if err := s.selectAll.SelectContext(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	s.log.Debug("contacts listed", zap.Int("count", len(contacts)))
	return contacts, nil
}

// Search returns all contacts whose name, phone or email contains the keyword, ignoring case. The
// keyword is taken literally, so '%' and '_' only match themselves. Case is folded with SQLite's
// LOWER, which only knows ASCII letters: "äl" does not find "Älice".
func (s *Store) Search(ctx context.Context, keyword string) ([]model.Contact, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	pattern := "%" + likeEscaper.Replace(keyword) + "%"
	contacts := []model.Contact{}
	if err := s.search.SelectContext(ctx, &contacts, pattern, pattern, pattern); err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	s.log.Debug("contacts searched", zap.Int("count", len(contacts)))
	return contacts, nil
}

// Find returns the contact with the given id.
func (s *Store) Find(ctx context.Context, id int64) (model.Contact, error) {
	var contact model.Contact
	err := s.selectWhereId.GetContext(ctx, &contact, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("find contact %d: %w", id, err)
	}
	return contact, nil
}

// Update replaces the values of the contact with the given id by the non-blank values of changes
// and returns the contact as stored afterwards. Reading and writing happen in one transaction.
//
// ErrNoChanges is returned, and nothing is written, if the result equals the stored contact.
func (s *Store) Update(ctx context.Context, id int64, changes model.Changes) (_ model.Contact, retErr error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Contact{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	var current model.Contact
	err = tx.GetContext(ctx, &current, selectWhereIdQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("find contact %d: %w", id, err)
	}

	merged := merge(current, changes)
	if merged.Name == "" || merged.Phone == "" {
		return model.Contact{}, ErrRequiredFields
	}
	if equal(merged, current) {
		return model.Contact{}, ErrNoChanges
	}

	_, err = tx.ExecContext(ctx, `UPDATE contacts SET name = ?, phone = ?, email = ? WHERE id = ?`,
		merged.Name, merged.Phone, nullable(merged.Email), id)
	if err != nil {
		if isConstraintViolation(err) {
			s.log.Warn("update rejected", zap.Int64("id", id), zap.Error(err))
			return model.Contact{}, fmt.Errorf("%w: %v", ErrConstraint, err)
		}
		return model.Contact{}, fmt.Errorf("update contact %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Contact{}, fmt.Errorf("commit update: %w", err)
	}
	s.log.Debug("contact updated", zap.Int64("id", id))
	return merged, nil
}

// Delete removes the contact with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.deleteWhereId.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete contact %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	s.log.Debug("contact deleted", zap.Int64("id", id))
	return nil
}

// merge applies the non-blank values of changes to the contact.
func merge(current model.Contact, changes model.Changes) model.Contact {
	merged := current
	if name := strings.TrimSpace(changes.Name); name != "" {
		merged.Name = name
	}
	if phone := strings.TrimSpace(changes.Phone); phone != "" {
		merged.Phone = phone
	}
	if email := optional(changes.Email); email != nil {
		merged.Email = email
	}
	return merged
}

// equal compares two contacts by value, treating a nil email and an empty one alike.
func equal(a, b model.Contact) bool {
	return a.Id == b.Id && a.Name == b.Name && a.Phone == b.Phone && a.EmailOr("") == b.EmailOr("")
}

// nullable turns an optional value into a statement argument, nil meaning NULL.
func nullable(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

// optional trims the value and returns nil if nothing is left.
func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
