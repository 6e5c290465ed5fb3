package models

import (
	"database/sql"
	"errors"

	"eventmap/utils"
)

type sqlUserRepo struct{ db *sql.DB } //真db 下面做他的與db的操作 //實現介面方法

func NewSQLUserRepository(db *sql.DB) UserRepository { return &sqlUserRepo{db} }

// Create 建 user「一定」連 profile 一起建，同一個 tx。
// 原本靠事後 hook 補 profile 的做法會有空窗，改成建構時的不變量。
func (r *sqlUserRepo) Create(u *User) error {
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // commit 之後是 no-op

	if err := tx.QueryRow(
		`INSERT INTO users(email, password) VALUES ($1,$2) RETURNING id`,
		u.Email, u.Password,
	).Scan(&u.ID); err != nil {
		return err
	}

	if _, err := tx.Exec(
		`INSERT INTO user_profiles(user_id) VALUES ($1)`, u.ID,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *sqlUserRepo) ValidateCredentials(email, plain string) (User, error) {
	var u User
	err := r.db.QueryRow(
		`SELECT id, email, password, is_admin FROM users WHERE email=$1`, email,
	).Scan(&u.ID, &u.Email, &u.Password, &u.IsAdmin)
	if err != nil {
		return User{}, err
	}

	// 用 bcrypt 比對 plain vs hashed
	if !utils.CheckPasswordHash(plain, u.Password) {
		return User{}, errors.New("invalid credentials")
	}

	return u, nil
}

func (r *sqlUserRepo) GetByID(id int64) (User, error) {
	var u User
	err := r.db.QueryRow(
		`SELECT id, email, is_admin FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.Email, &u.IsAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *sqlUserRepo) GetProfile(userID int64) (Profile, error) {
	var p Profile
	err := r.db.QueryRow(
		`SELECT id, user_id, avatar_url, bio, city_slug, is_verified
		 FROM user_profiles WHERE user_id=$1`, userID,
	).Scan(&p.ID, &p.UserID, &p.AvatarURL, &p.Bio, &p.CitySlug, &p.IsVerified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// SetVerifiedOrganizer — 管理員核發/撤銷 verified organizer 標記
func (r *sqlUserRepo) SetVerifiedOrganizer(userID int64, verified bool) error {
	res, err := r.db.Exec(
		`UPDATE user_profiles SET is_verified=$1 WHERE user_id=$2`, verified, userID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
