package migrations

import (
	"github.com/jmoiron/sqlx"
)

func init() {
	m.addMigration(&migration{
		version: "20260501092500",
		up:      mig_20260501092500_tasks_up,
		down:    mig_20260501092500_tasks_down,
	})
}

func mig_20260501092500_tasks_up(tx *sqlx.Tx) error {
	// created_by and task_assignees.user_id have no foreign keys; assignee
	// entries go stale rather than disappear when a user is removed.
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS tasks (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            board_id UUID NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
            title VARCHAR(500) NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status VARCHAR(50) NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'in_progress', 'in_review', 'done')),
            due_date TIMESTAMP WITH TIME ZONE,
            attachment_ref TEXT NOT NULL DEFAULT '',
            created_by UUID NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE TABLE IF NOT EXISTS task_assignees (
            task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
            user_id UUID NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            CONSTRAINT task_assignees_pkey PRIMARY KEY (task_id, user_id)
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_tasks_board_id ON tasks(board_id);
    `)
	return err
}

func mig_20260501092500_tasks_down(tx *sqlx.Tx) error {
	if _, err := tx.Exec(`DROP TABLE IF EXISTS task_assignees;`); err != nil {
		return err
	}
	_, err := tx.Exec(`DROP TABLE IF EXISTS tasks;`)
	return err
}
