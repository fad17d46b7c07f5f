package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	userCookieName = "uid"
	cookieMaxAge   = 30 * 24 * 3600 // 30 days in seconds
)

// identity manages the signed uid cookie that identifies callers.
// The cookie value is tamper-evident: "uid.base64url(HMAC-SHA256(secret, uid))".
type identity struct {
	hmacSecret []byte
	isDev      bool
	logger     *slog.Logger
}

// UserID extracts the caller identity from the uid cookie.
// Returns empty string if no uid cookie is present, the HMAC signature
// is invalid, or the value is not a valid UUID. The UUID check keeps
// malformed owner IDs out of SQL queries.
func (id *identity) UserID(r *http.Request) string {
	cookie, err := r.Cookie(userCookieName)
	if err != nil {
		return ""
	}
	uid, ok := verifySignedUID(cookie.Value, id.hmacSecret)
	if !ok {
		return ""
	}
	if _, err := uuid.Parse(uid); err != nil {
		return ""
	}
	return uid
}

func (id *identity) setUserCookie(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     userCookieName,
		Value:    signUID(userID, id.hmacSecret),
		Path:     "/",
		Secure:   !id.isDev,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   cookieMaxAge,
	})
}

// signUID creates an HMAC-signed cookie value.
func signUID(uid string, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(uid))
	sig := base64.URLEncoding.EncodeToString(h.Sum(nil))
	return uid + "." + sig
}

// verifySignedUID splits a signed cookie value and verifies the HMAC
// signature. Returns the extracted UID and true on success.
func verifySignedUID(value string, secret []byte) (string, bool) {
	idx := strings.LastIndex(value, ".")
	if idx < 1 {
		return "", false
	}

	uid := value[:idx]
	sig, err := base64.URLEncoding.DecodeString(value[idx+1:])
	if err != nil {
		return "", false
	}

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(uid))
	expected := h.Sum(nil)

	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return "", false
	}

	return uid, true
}
