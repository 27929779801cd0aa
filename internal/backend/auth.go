/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
)

// MaxTokenTTL caps the lifetime of issued tokens.
const MaxTokenTTL = 24 * time.Hour

// IssueToken signs an HS256 bearer token for subject that expires after ttl.
// A ttl outside (0, MaxTokenTTL] falls back to one hour.
func IssueToken(secret, subject string, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("auth secret is not configured")
	}
	if ttl <= 0 || ttl > MaxTokenTTL {
		ttl = time.Hour
	}
	exp := time.Now().Add(ttl)
	tok, err := signToken(secret, subject, exp)
	return tok, exp, err
}

func signToken(secret, subject string, exp time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// verifyToken checks signature and expiry against now and returns the subject.
func verifyToken(secret, token string, now time.Time) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	return claims.Subject, nil
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requireToken guards write routes when an auth secret is configured.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthSecret == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := bearer(r)
		if !ok {
			renderError(w, r, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		sub, err := verifyToken(s.cfg.AuthSecret, token, time.Now())
		if err != nil {
			s.log.Debug("token rejected", slog.Any("err", err))
			renderError(w, r, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}
		s.log.Debug("token accepted", slog.String("sub", sub))
		next.ServeHTTP(w, r)
	})
}

// handleIssueToken answers POST /api/auth/token with {token, expiresAt}.
// The caller authenticates with the shared secret as bearer credential.
// The optional body {"subject", "ttlSeconds"} is capped at MaxTokenTTL.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	cred, ok := bearer(r)
	if !ok || subtle.ConstantTimeCompare([]byte(cred), []byte(s.cfg.AuthSecret)) != 1 {
		renderError(w, r, http.StatusUnauthorized, errors.New("auth secret required"))
		return
	}
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttlSeconds"`
	}
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req)
	if req.Subject == "" {
		req.Subject = "api"
	}
	tok, exp, err := IssueToken(s.cfg.AuthSecret, req.Subject, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"token":     tok,
		"expiresAt": exp.UTC().Format(time.RFC3339),
	})
}
