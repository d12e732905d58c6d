package database

import (
	"github.com/Rana718/seedbench/internal/database/mysql"
	"github.com/Rana718/seedbench/internal/database/postgres"
	"github.com/Rana718/seedbench/internal/database/sqlite"
	"github.com/Rana718/seedbench/internal/model"
)

func NewAdapter(provider string) (DatabaseAdapter, error) {
	switch provider {
	case "postgresql", "postgres", "cockroach", "cockroachdb":
		return postgres.New(), nil
	case "mysql":
		return mysql.New(), nil
	case "sqlite", "sqlite3":
		return sqlite.New(), nil
	default:
		return nil, model.ErrConfiguration("unsupported database provider %q", provider)
	}
}
