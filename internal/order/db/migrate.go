package db

import (
	"context"

	"ms-booking/internal/models"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Migrate creates the order and transaction tables if they do not exist yet.
func Migrate(ctx context.Context, db *bun.DB) error {
	for _, model := range []interface{}{
		(*models.Order)(nil),
		(*models.Transaction)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrapf(err, "create table for %T", model)
		}
	}

	_, err := db.NewCreateIndex().
		Model((*models.Order)(nil)).
		Index("orders_user_id_idx").
		Column("user_id").
		IfNotExists().
		Exec(ctx)
	return errors.Wrap(err, "create orders user index")
}
