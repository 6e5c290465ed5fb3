package db

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"
)

// InitDB 開連線、調 pool、建 schema；identity + ledger 都在這顆 Postgres
func InitDB(dsn string) (*sql.DB, error) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := sqldb.Ping(); err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(20)
	sqldb.SetMaxIdleConns(10)

	CreateTables(sqldb)
	return sqldb, nil
}

// CreateTables 建 identity + interaction ledger 的 schema。
// (user_id, event_id, interaction_type) 的複合唯一鍵是 toggle 並發安全的根據：
// 兩個同時的 insert 只會有一個成功，撞到 23505 的那邊改走刪除。
func CreateTables(sqldb *sql.DB) {
	createUsersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE
	);`
	if _, err := sqldb.Exec(createUsersTable); err != nil {
		log.Fatal("Could not create users table:", err)
	}

	// profile 跟 user 同生命週期，signup 在同一個 tx 裡一起建
	createProfilesTable := `
	CREATE TABLE IF NOT EXISTS user_profiles (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		avatar_url TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		city_slug TEXT NOT NULL DEFAULT '',
		is_verified BOOLEAN NOT NULL DEFAULT FALSE
	);`
	if _, err := sqldb.Exec(createProfilesTable); err != nil {
		log.Fatal("Could not create user_profiles table:", err)
	}

	// event_id 是 Mongo 那邊的事件 UUID（跨庫統一鍵）
	createInteractionsTable := `
	CREATE TABLE IF NOT EXISTS event_interactions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		event_id UUID NOT NULL,
		interaction_type TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, event_id, interaction_type)
	);`
	if _, err := sqldb.Exec(createInteractionsTable); err != nil {
		log.Fatal("Could not create event_interactions table:", err)
	}

	createInteractionsIdx := `
	CREATE INDEX IF NOT EXISTS idx_interactions_event
		ON event_interactions (event_id, interaction_type);`
	if _, err := sqldb.Exec(createInteractionsIdx); err != nil {
		log.Fatal("Could not create event_interactions index:", err)
	}
}
