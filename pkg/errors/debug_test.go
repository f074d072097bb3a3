package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpExtractsPostgresDetail(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "ux_financial_transactions_external_id",
		TableName:      "financial_transactions",
		SchemaName:     "public",
		Message:        "duplicate key value violates unique constraint",
	}
	dump := Dump(Wrap(CodeConflict, fmt.Errorf("create transaction: %w", pgErr), "apply payment"))

	assert.Equal(t, "23505", dump.PGCode)
	assert.Equal(t, "ux_financial_transactions_external_id", dump.PGConstraint)
	assert.Equal(t, "public", dump.PGSchema)
	assert.Equal(t, CodeConflict, dump.Code)
	require.NotEmpty(t, dump.Chain)

	fields := dump.Fields()
	assert.Equal(t, "23505", fields["pg_code"])
	assert.Equal(t, "public", fields["pg_schema"])
}

func TestFieldsOmitPostgresKeysForPlainErrors(t *testing.T) {
	fields := Dump(New(CodeValidation, "bad input")).Fields()

	assert.Contains(t, fields, "error")
	assert.Contains(t, fields, "error_code")
	assert.NotContains(t, fields, "pg_code")
	assert.NotContains(t, fields, "pg_schema")
}
