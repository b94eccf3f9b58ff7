package index

import (
	"fmt"

	"github.com/openmined/dropsearch/internal/db"
	"github.com/openmined/dropsearch/internal/utils"
)

const memoryPath = ":memory:"

// New opens the index backend selected by cfg. The caller owns the returned Index and must Close it.
func New(cfg *Config) (Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendElastic:
		return NewElasticIndex(cfg.Name, cfg.PageSize, &cfg.Elastic)
	default:
		return newSQLite(cfg)
	}
}

func newSQLite(cfg *Config) (*SQLiteIndex, error) {
	opts := []db.SqliteOption{db.WithPath(memoryPath), db.WithMaxOpenConns(1)}

	if path := cfg.SQLite.Path; path != memoryPath {
		resolved, err := utils.ResolvePath(path)
		if err != nil {
			return nil, fmt.Errorf("index: sqlite path: %w", err)
		}
		opts = []db.SqliteOption{db.WithPath(resolved)}
	}

	database, err := db.NewSqliteDB(opts...)
	if err != nil {
		return nil, err
	}
	return NewSQLiteIndex(database, cfg.Name, cfg.PageSize), nil
}
