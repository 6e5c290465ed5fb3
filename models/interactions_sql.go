package models

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type sqlInteractionRepo struct{ db *sql.DB }

func NewSQLInteractionRepository(db *sql.DB) InteractionRepository {
	return &sqlInteractionRepo{db}
}

// Toggle 先 insert，撞到唯一鍵 (23505) 就改刪除 — toggle 不是 upsert。
// 依賴 UNIQUE(user_id, event_id, interaction_type) 杜絕並發下的重複列，
// 兩個同時的 toggle 只會有一個 insert 成功，另一個走刪除分支。
func (r *sqlInteractionRepo) Toggle(userID int64, eventID, kind string) (ToggleResult, error) {
	var in Interaction
	err := r.db.QueryRow(
		`INSERT INTO event_interactions(user_id, event_id, interaction_type)
		 VALUES ($1,$2,$3)
		 RETURNING id, user_id, event_id, interaction_type, created_at`,
		userID, eventID, kind,
	).Scan(&in.ID, &in.UserID, &in.EventID, &in.Kind, &in.CreatedAt)

	if err == nil {
		return ToggleResult{Created: true, Interaction: in}, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation → 已存在，改走刪除
		if _, derr := r.db.Exec(
			`DELETE FROM event_interactions
			 WHERE user_id=$1 AND event_id=$2 AND interaction_type=$3`,
			userID, eventID, kind,
		); derr != nil {
			return ToggleResult{}, derr
		}
		return ToggleResult{Created: false}, nil
	}

	return ToggleResult{}, err
}

func (r *sqlInteractionRepo) ReportCount(eventID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM event_interactions
		 WHERE event_id=$1 AND interaction_type=$2`,
		eventID, InteractionReported,
	).Scan(&n)
	return n, err
}

// CountsForEvents 一次撈整頁 feature collection 需要的 kind→count 映射
func (r *sqlInteractionRepo) CountsForEvents(eventIDs []string) (map[string]map[string]int, error) {
	out := make(map[string]map[string]int, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(
		`SELECT event_id, interaction_type, COUNT(*)
		 FROM event_interactions
		 WHERE event_id = ANY($1)
		 GROUP BY event_id, interaction_type`,
		pq.Array(eventIDs),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, kind string
		var n int
		if err := rows.Scan(&id, &kind, &n); err != nil {
			return nil, err
		}
		if out[id] == nil {
			out[id] = make(map[string]int, 4)
		}
		out[id][kind] = n
	}
	return out, rows.Err()
}

// RecipientsForEvent — reminder 的收件人：有指定互動的使用者 email，DISTINCT 去重
func (r *sqlInteractionRepo) RecipientsForEvent(eventID string, kinds []string) ([]string, error) {
	rows, err := r.db.Query(
		`SELECT DISTINCT u.email
		 FROM event_interactions i
		 JOIN users u ON u.id = i.user_id
		 WHERE i.event_id=$1 AND i.interaction_type = ANY($2)`,
		eventID, pq.Array(kinds),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}
