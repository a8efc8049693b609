package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dreyes/minutebank/internal/domain/ledger"
	"github.com/dreyes/minutebank/internal/repository"
)

// TransactionRepository implements the append-only ledger on SQLite.
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append inserts a ledger entry. Entries are never updated or deleted
// individually; DeleteByProfile exists only for profile removal.
func (r *TransactionRepository) Append(ctx context.Context, familyID string, tx *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, family_id, profile_id, type, amount, description,
			timestamp, task_id, consequence_type, target_session
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		familyID,
		tx.ProfileID,
		string(tx.Type),
		tx.Amount,
		tx.Description,
		tx.Timestamp,
		nullString(tx.TaskID),
		nullString(tx.ConsequenceType),
		tx.TargetSession,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s already exists: %w", tx.ID, repository.ErrConflict)
		}
		if isBusy(err) {
			return repository.ErrUnavailable
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// ListByProfile returns a profile's entries newest first. The rowid tiebreak
// keeps ordering stable when entries share a timestamp. A limit of 0 returns
// the full log, which replay and reconciliation need.
func (r *TransactionRepository) ListByProfile(ctx context.Context, familyID, profileID string, limit int) ([]ledger.Transaction, error) {
	query := `
		SELECT id, profile_id, type, amount, description,
		       timestamp, task_id, consequence_type, target_session
		FROM transactions
		WHERE family_id = ? AND profile_id = ?
		ORDER BY timestamp DESC, rowid DESC
	`
	args := []any{familyID, profileID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isBusy(err) {
			return nil, repository.ErrUnavailable
		}
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var typ string
		var taskID, consequenceType sql.NullString
		err := rows.Scan(
			&tx.ID,
			&tx.ProfileID,
			&typ,
			&tx.Amount,
			&tx.Description,
			&tx.Timestamp,
			&taskID,
			&consequenceType,
			&tx.TargetSession,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Type = ledger.Type(typ)
		if taskID.Valid {
			tx.TaskID = taskID.String
		}
		if consequenceType.Valid {
			tx.ConsequenceType = consequenceType.String
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

// DeleteByProfile removes a profile's full log, used when the profile itself
// is deleted.
func (r *TransactionRepository) DeleteByProfile(ctx context.Context, familyID, profileID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE family_id = ? AND profile_id = ?`,
		familyID, profileID)
	if err != nil {
		if isBusy(err) {
			return repository.ErrUnavailable
		}
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
