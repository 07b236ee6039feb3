package postgres

// SQL queries for the delivery log

const (
	// querySaveReport appends one dispatch report.
	querySaveReport = `
		INSERT INTO dispatch_reports (
			id, event, message_id, attempted, succeeded,
			failed, outcomes, dispatched_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	// queryTableExists checks that migrations created the delivery log table.
	queryTableExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'dispatch_reports'
		)
	`
)
