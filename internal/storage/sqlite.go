// Package storage is the embedded relational store: a single
// modernc.org/sqlite file holding the notams and search_runs relations,
// opened exactly as internal/state/tracker.go opens its own database in
// the teacher repo.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"notamwatch/internal/notam"
)

// Store wraps the embedded database connection pool. Upsert runs its
// statements inside one *sql.Tx, committed on success and rolled back on
// error; every other method issues a single statement, which sqlite runs
// as its own implicit transaction. No connection is held across calls
// beyond what database/sql itself pools.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open creates (or reuses) the sqlite file at path, applies the schema,
// and returns a ready Store. logger may be nil.
func Open(path string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const insertSQL = `
INSERT INTO notams (
	notam_id, series, number, year, kind, replaces_id, cancels_id,
	fir, q_code, q_subject, q_condition, traffic, purpose, scope,
	lower_limit, upper_limit, coordinates, latitude, longitude, radius_nm,
	location, valid_from, valid_to, is_permanent, schedule, body,
	lower_limit_text, upper_limit_text, airport_code, airport_name,
	issue_date, source, source_type, transaction_id, has_history,
	raw_icao_message, search_term, is_closure, is_drone_related,
	is_restriction, is_trigger, priority_score, created_at, updated_at
) VALUES (
	?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
	?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
)`

const updateSQL = `
UPDATE notams SET
	series = ?, number = ?, year = ?, kind = ?, replaces_id = ?, cancels_id = ?,
	fir = ?, q_code = ?, q_subject = ?, q_condition = ?, traffic = ?, purpose = ?, scope = ?,
	lower_limit = ?, upper_limit = ?, coordinates = ?, latitude = ?, longitude = ?, radius_nm = ?,
	location = ?, valid_from = ?, valid_to = ?, is_permanent = ?, schedule = ?, body = ?,
	lower_limit_text = ?, upper_limit_text = ?, airport_code = ?, airport_name = ?,
	issue_date = ?, source = ?, source_type = ?, transaction_id = ?, has_history = ?,
	raw_icao_message = ?, search_term = ?, is_closure = ?, is_drone_related = ?,
	is_restriction = ?, is_trigger = ?, priority_score = ?, updated_at = ?
WHERE notam_id = ?`

// Upsert inserts n or, if notam_id already exists, overwrites every
// column except created_at. It reports whether the row was newly
// inserted. If n is a CANCEL referencing another row, that row's kind is
// best-effort overwritten to CANCEL as a side effect that never fails
// the primary upsert.
func (s *Store) Upsert(ctx context.Context, n *notam.Notam) (wasInserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("storage: begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM notams WHERE notam_id = ?`, n.ID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		wasInserted = true
	case err != nil:
		return false, fmt.Errorf("storage: check existing notam: %w", err)
	}

	now := time.Now().UTC()

	if wasInserted {
		n.CreatedAt = now
		n.UpdatedAt = now
		_, err = tx.ExecContext(ctx, insertSQL,
			n.ID, n.Series, n.Number, n.Year, string(n.Kind), nullStr(n.ReplacesID), nullStr(n.CancelsID),
			n.FIR, n.QCode, n.QSubject, n.QCondition, n.Traffic, n.Purpose, n.Scope,
			nullInt(n.LowerLimit), nullInt(n.UpperLimit), n.Coordinates, nullFloat(n.Latitude), nullFloat(n.Longitude), nullInt(n.RadiusNM),
			n.Location, nullTimeValue(n.ValidFrom), nullTimePtr(n.ValidTo), boolToInt(n.IsPermanent), n.Schedule, n.Body,
			n.LowerLimitText, n.UpperLimitText, n.AirportCode, n.AirportName,
			nullTimeValue(n.IssueDate), n.Source, n.SourceType, n.TransactionID, boolToInt(n.HasHistory),
			n.RawICAOMessage, nullStr(n.SearchTerm), boolToInt(n.IsClosure), boolToInt(n.IsDroneRelated),
			boolToInt(n.IsRestriction), boolToInt(n.IsTrigger), n.PriorityScore, now, now,
		)
		if err != nil {
			return false, fmt.Errorf("storage: insert notam %s: %w", n.ID, err)
		}
	} else {
		n.UpdatedAt = now
		_, err = tx.ExecContext(ctx, updateSQL,
			n.Series, n.Number, n.Year, string(n.Kind), nullStr(n.ReplacesID), nullStr(n.CancelsID),
			n.FIR, n.QCode, n.QSubject, n.QCondition, n.Traffic, n.Purpose, n.Scope,
			nullInt(n.LowerLimit), nullInt(n.UpperLimit), n.Coordinates, nullFloat(n.Latitude), nullFloat(n.Longitude), nullInt(n.RadiusNM),
			n.Location, nullTimeValue(n.ValidFrom), nullTimePtr(n.ValidTo), boolToInt(n.IsPermanent), n.Schedule, n.Body,
			n.LowerLimitText, n.UpperLimitText, n.AirportCode, n.AirportName,
			nullTimeValue(n.IssueDate), n.Source, n.SourceType, n.TransactionID, boolToInt(n.HasHistory),
			n.RawICAOMessage, nullStr(n.SearchTerm), boolToInt(n.IsClosure), boolToInt(n.IsDroneRelated),
			boolToInt(n.IsRestriction), boolToInt(n.IsTrigger), n.PriorityScore, now,
			n.ID,
		)
		if err != nil {
			return false, fmt.Errorf("storage: update notam %s: %w", n.ID, err)
		}
	}

	if n.Kind == notam.KindCancel && n.CancelsID != "" {
		if _, cascadeErr := tx.ExecContext(ctx,
			`UPDATE notams SET kind = ?, updated_at = ? WHERE notam_id = ?`,
			string(notam.KindCancel), now, n.CancelsID,
		); cascadeErr != nil && s.logger != nil {
			s.logger.Printf("storage: cancel cascade to %s failed (non-fatal): %v", n.CancelsID, cascadeErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("storage: commit upsert tx: %w", err)
	}
	return wasInserted, nil
}

// InsertSearchRun records one immutable audit row for a completed cycle.
func (s *Store) InsertSearchRun(ctx context.Context, run notam.SearchRun) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO search_runs (mode, search_term, airport_codes, total_fetched, new_inserted, updated, run_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(run.Mode), nullStr(run.SearchTerm), nullStr(run.AirportCodes),
		run.TotalFetched, run.NewInserted, run.Updated, run.RunAt,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert search_run: %w", err)
	}
	return res.LastInsertId()
}

// PurgeExpired deletes rows whose valid_to is non-null and older than
// days in the past.
func (s *Store) PurgeExpired(ctx context.Context, days int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notams WHERE valid_to IS NOT NULL AND valid_to < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: purge expired: %w", err)
	}
	return res.RowsAffected()
}

// PurgeCancelled deletes CANCEL rows whose updated_at is older than days
// in the past.
func (s *Store) PurgeCancelled(ctx context.Context, days int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notams WHERE kind = ? AND updated_at < datetime('now', ?)`,
		string(notam.KindCancel), fmt.Sprintf("-%d days", days),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: purge cancelled: %w", err)
	}
	return res.RowsAffected()
}

// PurgeOldSearchRuns deletes audit rows older than days in the past.
func (s *Store) PurgeOldSearchRuns(ctx context.Context, days int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM search_runs WHERE run_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: purge old search runs: %w", err)
	}
	return res.RowsAffected()
}

const selectColumns = `
	notam_id, series, number, year, kind, replaces_id, cancels_id,
	fir, q_code, q_subject, q_condition, traffic, purpose, scope,
	lower_limit, upper_limit, coordinates, latitude, longitude, radius_nm,
	location, valid_from, valid_to, is_permanent, schedule, body,
	lower_limit_text, upper_limit_text, airport_code, airport_name,
	issue_date, source, source_type, transaction_id, has_history,
	raw_icao_message, search_term, is_closure, is_drone_related,
	is_restriction, is_trigger, priority_score, created_at, updated_at
`

// ActiveNotams returns non-cancelled NOTAMs that are not yet expired,
// optionally filtered to a minimum priority score, ordered by
// priority_score DESC, valid_from DESC.
func (s *Store) ActiveNotams(ctx context.Context, minScore *int) ([]*notam.Notam, error) {
	query := `SELECT ` + selectColumns + ` FROM notams
		WHERE kind != ? AND (valid_to IS NULL OR valid_to > datetime('now'))`
	args := []any{string(notam.KindCancel)}
	if minScore != nil {
		query += ` AND priority_score >= ?`
		args = append(args, *minScore)
	}
	query += ` ORDER BY priority_score DESC, valid_from DESC`
	return s.queryNotams(ctx, query, args...)
}

// ActiveClosures returns active NOTAMs flagged as closures.
func (s *Store) ActiveClosures(ctx context.Context) ([]*notam.Notam, error) {
	query := `SELECT ` + selectColumns + ` FROM notams
		WHERE kind != ? AND (valid_to IS NULL OR valid_to > datetime('now')) AND is_closure = 1
		ORDER BY priority_score DESC, valid_from DESC`
	return s.queryNotams(ctx, query, string(notam.KindCancel))
}

// ActiveDroneNotams returns active NOTAMs flagged as drone-related.
func (s *Store) ActiveDroneNotams(ctx context.Context) ([]*notam.Notam, error) {
	query := `SELECT ` + selectColumns + ` FROM notams
		WHERE kind != ? AND (valid_to IS NULL OR valid_to > datetime('now')) AND is_drone_related = 1
		ORDER BY priority_score DESC, valid_from DESC`
	return s.queryNotams(ctx, query, string(notam.KindCancel))
}

// BySearchTerm returns every NOTAM retrieved under the given free-text
// search term.
func (s *Store) BySearchTerm(ctx context.Context, term string) ([]*notam.Notam, error) {
	query := `SELECT ` + selectColumns + ` FROM notams WHERE search_term = ?
		ORDER BY priority_score DESC, valid_from DESC`
	return s.queryNotams(ctx, query, term)
}

// ByAirportCode returns every NOTAM for a given airport code.
func (s *Store) ByAirportCode(ctx context.Context, code string) ([]*notam.Notam, error) {
	query := `SELECT ` + selectColumns + ` FROM notams WHERE airport_code = ?
		ORDER BY priority_score DESC, valid_from DESC`
	return s.queryNotams(ctx, query, code)
}

// Stats is a snapshot of aggregate counts by flag, used for the
// end-of-cycle log line.
type Stats struct {
	Total        int
	Closures     int
	DroneRelated int
	Restrictions int
	Cancelled    int
}

// Stats computes aggregate totals by flag across the whole store.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			SUM(is_closure),
			SUM(is_drone_related),
			SUM(is_restriction),
			SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END)
		FROM notams`, string(notam.KindCancel))

	var closures, drone, restrictions, cancelled sql.NullInt64
	if err := row.Scan(&st.Total, &closures, &drone, &restrictions, &cancelled); err != nil {
		return Stats{}, fmt.Errorf("storage: stats: %w", err)
	}
	st.Closures = int(closures.Int64)
	st.DroneRelated = int(drone.Int64)
	st.Restrictions = int(restrictions.Int64)
	st.Cancelled = int(cancelled.Int64)
	return st, nil
}

func (s *Store) queryNotams(ctx context.Context, query string, args ...any) ([]*notam.Notam, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query notams: %w", err)
	}
	defer rows.Close()

	var out []*notam.Notam
	for rows.Next() {
		n, err := scanNotam(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan notam: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNotam(rows *sql.Rows) (*notam.Notam, error) {
	var n notam.Notam
	var (
		kind, replacesID, cancelsID                               sql.NullString
		lowerLimit, upperLimit, radiusNM                          sql.NullInt64
		latitude, longitude                                       sql.NullFloat64
		validFrom, validTo, issueDate, createdAt, updatedAt       sql.NullTime
		isPermanent, hasHistory, isClosure, isDrone, isRestr, isTrig int64
		searchTerm                                                sql.NullString
	)

	err := rows.Scan(
		&n.ID, &n.Series, &n.Number, &n.Year, &kind, &replacesID, &cancelsID,
		&n.FIR, &n.QCode, &n.QSubject, &n.QCondition, &n.Traffic, &n.Purpose, &n.Scope,
		&lowerLimit, &upperLimit, &n.Coordinates, &latitude, &longitude, &radiusNM,
		&n.Location, &validFrom, &validTo, &isPermanent, &n.Schedule, &n.Body,
		&n.LowerLimitText, &n.UpperLimitText, &n.AirportCode, &n.AirportName,
		&issueDate, &n.Source, &n.SourceType, &n.TransactionID, &hasHistory,
		&n.RawICAOMessage, &searchTerm, &isClosure, &isDrone, &isRestr, &isTrig,
		&n.PriorityScore, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Kind = notam.Kind(kind.String)
	n.ReplacesID = replacesID.String
	n.CancelsID = cancelsID.String
	n.SearchTerm = searchTerm.String
	n.IsPermanent = isPermanent != 0
	n.HasHistory = hasHistory != 0
	n.IsClosure = isClosure != 0
	n.IsDroneRelated = isDrone != 0
	n.IsRestriction = isRestr != 0
	n.IsTrigger = isTrig != 0

	if lowerLimit.Valid {
		v := int(lowerLimit.Int64)
		n.LowerLimit = &v
	}
	if upperLimit.Valid {
		v := int(upperLimit.Int64)
		n.UpperLimit = &v
	}
	if radiusNM.Valid {
		v := int(radiusNM.Int64)
		n.RadiusNM = &v
	}
	if latitude.Valid {
		v := latitude.Float64
		n.Latitude = &v
	}
	if longitude.Valid {
		v := longitude.Float64
		n.Longitude = &v
	}
	if validFrom.Valid {
		n.ValidFrom = validFrom.Time
	}
	if validTo.Valid {
		t := validTo.Time
		n.ValidTo = &t
	}
	if issueDate.Valid {
		n.IssueDate = issueDate.Time
	}
	if createdAt.Valid {
		n.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		n.UpdatedAt = updatedAt.Time
	}

	return &n, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullTimeValue(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
