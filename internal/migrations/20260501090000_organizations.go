package migrations

import (
	"github.com/jmoiron/sqlx"
)

func init() {
	m.addMigration(&migration{
		version: "20260501090000",
		up:      mig_20260501090000_organizations_up,
		down:    mig_20260501090000_organizations_down,
	})
}

func mig_20260501090000_organizations_up(tx *sqlx.Tx) error {
	// owner_id is nullable because the owner user is created after the
	// organization row inside the bootstrap transaction. It deliberately has
	// no foreign key; the linkage is application managed.
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS organizations (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            name VARCHAR(255) NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            owner_id UUID,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `)
	return err
}

func mig_20260501090000_organizations_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS organizations;`)
	return err
}
