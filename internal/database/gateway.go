package database

import (
	"github.com/jmoiron/sqlx"
)

// Gateway is the SQL-backed progress store: progress rows plus profile points.
type Gateway struct {
	*UserProgressRepository
	*ProfileRepository
}

// NewGateway wires both repositories over one connection pool
func NewGateway(db *sqlx.DB) *Gateway {
	return &Gateway{
		UserProgressRepository: NewUserProgressRepository(db),
		ProfileRepository:      NewProfileRepository(db),
	}
}
