// Package dbtool implements the maintenance commands for the badger store:
// init, clean, backup and restore.
package dbtool

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"inkwell/app/repositories"

	"github.com/dgraph-io/badger/v4"
)

// ErrCancelled is returned when the operator declines a destructive step.
var ErrCancelled = errors.New("operation cancelled")

// Tool runs maintenance commands against the database at Path.
type Tool struct {
	Path      string
	BackupDir string
	In        io.Reader
	Out       io.Writer

	now func() time.Time
}

func New(path, backupDir string, in io.Reader, out io.Writer) *Tool {
	return &Tool{Path: path, BackupDir: backupDir, In: in, Out: out, now: time.Now}
}

func (t *Tool) exists() bool {
	_, err := os.Stat(t.Path)
	return err == nil
}

func (t *Tool) confirm(prompt string) bool {
	fmt.Fprintf(t.Out, "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(t.In).ReadString('\n')
	answer := strings.TrimSpace(line)
	return answer == "y" || answer == "Y"
}

// Init creates a new empty database.
func (t *Tool) Init() error {
	if t.exists() {
		return fmt.Errorf("database already exists at %s, run clean first to reinitialize", t.Path)
	}
	if err := os.MkdirAll(t.Path, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := badger.Open(repositories.BadgerOptions(t.Path))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.Close(); err != nil {
		return err
	}
	fmt.Fprintln(t.Out, "Database initialized successfully")
	return nil
}

// Clean removes the database after confirmation.
func (t *Tool) Clean() error {
	if !t.exists() {
		fmt.Fprintln(t.Out, "Database is already clean (does not exist)")
		return nil
	}
	if !t.confirm("Are you sure you want to clean the database? This cannot be undone.") {
		return ErrCancelled
	}
	if err := os.RemoveAll(t.Path); err != nil {
		return fmt.Errorf("failed to clean database: %w", err)
	}
	fmt.Fprintln(t.Out, "Database cleaned successfully")
	return nil
}

// Backup writes a full backup into BackupDir and returns its path.
func (t *Tool) Backup() (string, error) {
	if !t.exists() {
		return "", fmt.Errorf("no database exists at %s", t.Path)
	}
	if err := os.MkdirAll(t.BackupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	db, err := badger.Open(repositories.BadgerOptions(t.Path))
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	file := filepath.Join(t.BackupDir, fmt.Sprintf("backup_%d.db", t.now().UnixNano()))
	f, err := os.Create(file)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}
	fmt.Fprintf(t.Out, "Database backed up successfully to %s\n", file)
	return file, nil
}

// Restore replaces the database with the contents of a backup file. An
// existing database is only replaced after confirmation.
func (t *Tool) Restore(backupFile string) (err error) {
	fi, err := os.Stat(backupFile)
	if err != nil {
		return fmt.Errorf("backup file does not exist: %s", backupFile)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("backup file is empty: %s", backupFile)
	}

	if t.exists() {
		if !t.confirm("Existing database found. Do you want to replace it?") {
			return ErrCancelled
		}
		if err := os.RemoveAll(t.Path); err != nil {
			return fmt.Errorf("failed to remove existing database: %w", err)
		}
	}
	if err := os.MkdirAll(t.Path, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := badger.Open(repositories.BadgerOptions(t.Path))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred during restore: %v", r)
		}
	}()
	if err := db.Load(f, 4); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	fmt.Fprintln(t.Out, "Database restored successfully")
	return nil
}
