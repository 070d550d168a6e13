package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"careline/internal/infrastructure/migration"
)

// Storage is the durable on-device store backing the action queue and the
// optimistic ledger. WAL mode keeps enqueues fast while a sync cycle reads.
type Storage struct {
	db  *sql.DB
	log *slog.Logger
}

func New(dataPath, migrationsPath string, log *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", dataPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	mg := migration.NewMigration(migrationsPath, dataPath, migration.DefaultEngine)
	if err := mg.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &Storage{
		db:  db,
		log: log.With(slog.String("component", "sqlite_storage")),
	}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) DB() *sql.DB {
	return s.db
}

// Actions returns the queued-action repository bound to this database.
func (s *Storage) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

// Updates returns the optimistic-ledger repository bound to this database.
func (s *Storage) Updates() *OptimisticRepository {
	return &OptimisticRepository{db: s.db}
}
