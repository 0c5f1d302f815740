package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Guest session tokens are HMAC-signed claims the chat widget persists in
// the browser. Presenting a valid token resumes the same room, so the
// token is the only key a guest ever holds, so it must be unguessable
// and never enumerable server-side.

var (
	tokenSecret []byte
	tokenTTL    = 30 * 24 * time.Hour
)

type Claims struct {
	RoomID    string `json:"roomId"`
	GuestName string `json:"guestName,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func SetSecret(secret []byte) {
	if len(secret) == 0 {
		return
	}
	tokenSecret = make([]byte, len(secret))
	copy(tokenSecret, secret)
}

func SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	tokenTTL = ttl
}

func Sign(roomID, guestName string, now time.Time) (string, error) {
	if len(tokenSecret) == 0 {
		return "", errors.New("session secret not configured")
	}

	payload, err := json.Marshal(Claims{
		RoomID:    roomID,
		GuestName: guestName,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tokenTTL).Unix(),
	})
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, tokenSecret)
	if _, err := mac.Write(payload); err != nil {
		return "", err
	}
	signature := mac.Sum(nil)

	payloadPart := base64.RawURLEncoding.EncodeToString(payload)
	sigPart := base64.RawURLEncoding.EncodeToString(signature)

	return fmt.Sprintf("%s.%s", payloadPart, sigPart), nil
}

func Verify(token string, now time.Time) (Claims, error) {
	if len(tokenSecret) == 0 {
		return Claims{}, errors.New("session secret not configured")
	}

	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Claims{}, errors.New("invalid token format")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, fmt.Errorf("decode payload: %w", err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, tokenSecret)
	if _, err := mac.Write(payload); err != nil {
		return Claims{}, fmt.Errorf("sign payload: %w", err)
	}

	if !hmac.Equal(sig, mac.Sum(nil)) {
		return Claims{}, errors.New("signature mismatch")
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("unmarshal claims: %w", err)
	}

	if claims.RoomID == "" {
		return Claims{}, errors.New("token missing room id")
	}

	if claims.ExpiresAt != 0 && now.UTC().Unix() > claims.ExpiresAt {
		return Claims{}, errors.New("token expired")
	}

	return claims, nil
}
