package migrations

import (
	"github.com/jmoiron/sqlx"
)

func init() {
	m.addMigration(&migration{
		version: "20260501092000",
		up:      mig_20260501092000_boards_up,
		down:    mig_20260501092000_boards_down,
	})
}

func mig_20260501092000_boards_up(tx *sqlx.Tx) error {
	// owner_id has no foreign key; boards keep their owner reference after
	// the owning user is removed.
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS boards (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
            name VARCHAR(255) NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            owner_id UUID NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE TABLE IF NOT EXISTS board_members (
            board_id UUID NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            CONSTRAINT board_members_pkey PRIMARY KEY (board_id, user_id)
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_boards_project_id ON boards(project_id);
    `)
	return err
}

func mig_20260501092000_boards_down(tx *sqlx.Tx) error {
	if _, err := tx.Exec(`DROP TABLE IF EXISTS board_members;`); err != nil {
		return err
	}
	_, err := tx.Exec(`DROP TABLE IF EXISTS boards;`)
	return err
}
