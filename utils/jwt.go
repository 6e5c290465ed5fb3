package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 簽章金鑰從設定來（JWT_SECRET env 可蓋掉），main 啟動時注入。
// 預設值只給本機開發跟測試用
var jwtSecret = []byte("supersecret")

func SetJWTSecret(secret string) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
}

// GenerateToken — HS256，2 小時後過期。payload 只放 email + userId
func GenerateToken(email string, userId int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":  email,
		"userId": userId,
		"exp":    time.Now().Add(time.Hour * 2).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// VerifyToken 驗簽章 + 有效期，通過才回 userId
func VerifyToken(token string) (int64, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		// 只收 HMAC，擋掉 alg 被換掉的 token
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("Unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return 0, errors.New("Could not parse token.")
	}

	// 簽章對了不代表有效（可能已過期）
	if !parsedToken.Valid {
		return 0, errors.New("Invalid token!")
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("Invalid token claims")
	}
	// JSON 數字解回來是 float64，要轉回 int64
	userId := int64(claims["userId"].(float64))
	return userId, nil
}
