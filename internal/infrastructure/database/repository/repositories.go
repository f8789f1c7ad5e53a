package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories holds all repository instances
type Repositories struct {
	Analyses *AnalysisRepository
}

// NewRepositories creates all repository instances from a database pool
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Analyses: NewAnalysisRepository(pool),
	}
}
