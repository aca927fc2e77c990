package repository

// Schema definitions for the Praxis database.
// Compatible with both SQLite and PostgreSQL.
//
// Entity tables keep the columns used for lookups next to the full JSON
// record in data. version backs optimistic locking.

const schemaBatches = `
CREATE TABLE IF NOT EXISTS batches (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    code TEXT NOT NULL,
    status TEXT NOT NULL,
    version INTEGER NOT NULL,
    data TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_batches_code ON batches(tenant_id, code);
`

const schemaInternships = `
CREATE TABLE IF NOT EXISTS internships (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    batch_id TEXT,
    student_id TEXT,
    status TEXT NOT NULL,
    version INTEGER NOT NULL,
    data TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_internships_batch ON internships(tenant_id, batch_id);
CREATE INDEX IF NOT EXISTS idx_internships_student ON internships(tenant_id, student_id);
CREATE INDEX IF NOT EXISTS idx_internships_status ON internships(tenant_id, status);
`

const schemaContracts = `
CREATE TABLE IF NOT EXISTS contracts (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    internship_id TEXT,
    status TEXT NOT NULL,
    expiration_date TIMESTAMP,
    version INTEGER NOT NULL,
    data TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_contracts_internship ON contracts(tenant_id, internship_id);
CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(tenant_id, status, expiration_date);
`

const schemaEvaluations = `
CREATE TABLE IF NOT EXISTS evaluations (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    internship_id TEXT,
    batch_id TEXT,
    status TEXT NOT NULL,
    version INTEGER NOT NULL,
    data TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, id)
);

CREATE INDEX IF NOT EXISTS idx_evaluations_internship ON evaluations(tenant_id, internship_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_batch ON evaluations(tenant_id, batch_id);
CREATE INDEX IF NOT EXISTS idx_evaluations_status ON evaluations(tenant_id, status);
`

// schemaPolicies keeps every version of a placement policy; the latest
// enabled one wins.
const schemaPolicies = `
CREATE TABLE IF NOT EXISTS policies (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 1.0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_policies_enabled ON policies(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaBatches,
		schemaInternships,
		schemaContracts,
		schemaEvaluations,
		schemaPolicies,
	}
}
