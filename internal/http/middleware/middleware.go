// Package middleware provides shared gin middleware for the webhook server.
package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"sort"
	"strings"
	"time"

	"textback_backend/platform/httpkit"
	"textback_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RequestTimer logs method, path, status and latency for every request.
func RequestTimer(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.HTTPRequest(
			c.Request.Method,
			c.FullPath(),
			c.Writer.Status(),
			float64(time.Since(start).Microseconds())/1000.0,
			c.ClientIP(),
		)
	}
}

// TelephonySignature validates the provider's HMAC-SHA1 webhook signature:
// base64(hmac-sha1(authToken, url + sortedFormKey1Value1...)). Requests with
// a missing or wrong signature are rejected before any handler runs, so an
// unauthenticated caller can never create ledger rows or trigger sends.
func TelephonySignature(authToken, publicBaseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authToken == "" {
			// Signature validation not configured (local development).
			c.Next()
			return
		}

		provided := c.GetHeader("X-Telephony-Signature")
		if provided == "" {
			httpkit.Error(c, http.StatusForbidden, "missing signature")
			c.Abort()
			return
		}

		if err := c.Request.ParseForm(); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "malformed form payload")
			c.Abort()
			return
		}

		url := strings.TrimRight(publicBaseURL, "/") + c.Request.URL.RequestURI()
		expected := ComputeTelephonySignature(authToken, url, c.Request.PostForm)

		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			httpkit.Error(c, http.StatusForbidden, "invalid signature")
			c.Abort()
			return
		}

		c.Next()
	}
}

// ComputeTelephonySignature builds the provider signature for a request:
// the full URL concatenated with each POST key and value in sorted key order,
// HMAC-SHA1 signed with the account auth token, base64 encoded.
func ComputeTelephonySignature(authToken, url string, form map[string][]string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		for _, v := range form[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// BearerToken guards internal job-trigger endpoints with a shared secret.
func BearerToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			httpkit.Error(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Next()
	}
}
