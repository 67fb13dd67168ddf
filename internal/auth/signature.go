package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTelegramSignature = errors.New("invalid telegram signature")
	ErrTelegramStale     = errors.New("telegram auth data is too old")
)

// VerifyTelegramLogin checks a Login Widget payload. fields holds every
// received key, including "hash".
func VerifyTelegramLogin(fields map[string]string, botToken string, maxAge time.Duration, now time.Time) error {
	received := fields["hash"]
	if received == "" {
		return ErrTelegramSignature
	}

	keys := make([]string, 0, len(fields))
	for key, value := range fields {
		if key == "hash" || value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+fields[key])
	}

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(received))) {
		return ErrTelegramSignature
	}

	authDate, err := strconv.ParseInt(fields["auth_date"], 10, 64)
	if err != nil {
		return ErrTelegramSignature
	}
	if maxAge > 0 && now.Sub(time.Unix(authDate, 0)) > maxAge {
		return ErrTelegramStale
	}
	return nil
}

func SignWebhookBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature compares a hex HMAC-SHA256 of body in constant time.
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	expected := SignWebhookBody(body, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
