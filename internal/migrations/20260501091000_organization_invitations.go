package migrations

import (
	"github.com/jmoiron/sqlx"
)

func init() {
	m.addMigration(&migration{
		version: "20260501091000",
		up:      mig_20260501091000_organization_invitations_up,
		down:    mig_20260501091000_organization_invitations_down,
	})
}

func mig_20260501091000_organization_invitations_up(tx *sqlx.Tx) error {
	// One row per (organization, email) pair for the pair's whole history;
	// spent rows are recycled in place. The two named unique constraints are
	// what the retry logic in the invitation service keys on. invited_by and
	// member_id have no foreign keys so the ledger survives user removal.
	_, err := tx.Exec(`
        CREATE TABLE IF NOT EXISTS organization_invitations (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
            invited_by UUID NOT NULL,
            email VARCHAR(255) NOT NULL,
            member_id UUID,
            status VARCHAR(50) NOT NULL DEFAULT 'invited' CHECK (status IN ('invited', 'accepted', 'declined')),
            role VARCHAR(50) NOT NULL CHECK (role IN ('admin', 'manager', 'member')),
            token TEXT NOT NULL,
            expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
            accepted_at TIMESTAMP WITH TIME ZONE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
            CONSTRAINT organization_invitations_token_key UNIQUE (token),
            CONSTRAINT organization_invitations_org_email_key UNIQUE (organization_id, email)
        );
    `)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        CREATE INDEX IF NOT EXISTS idx_organization_invitations_org ON organization_invitations(organization_id);
    `)
	return err
}

func mig_20260501091000_organization_invitations_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS organization_invitations;`)
	return err
}
