package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"paystream/internal/platform/querier"
	"paystream/internal/transport/http/api"
)

const IdempotencyHeader = "Idempotency-Key"

var (
	ErrIdempotencyConflict   = errors.New("idempotency key conflicts with existing request")
	ErrIdempotencyInProgress = errors.New("request with this idempotency key is still in progress")
)

// StoredResponse is what a replay writes back.
type StoredResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyBackend reserves a key before the handler runs so that two
// concurrent requests with the same key cannot both execute.
//
// Claim returns (nil, nil) when the caller now owns the key, the stored
// response when the key already completed, ErrIdempotencyInProgress while
// another request holds it and ErrIdempotencyConflict when the key was used
// for a different payload. Save completes a claim; Release drops one that
// produced nothing worth replaying.
type IdempotencyBackend interface {
	Claim(ctx context.Context, caller, endpoint, key, requestHash string) (*StoredResponse, error)
	Save(ctx context.Context, caller, endpoint, key, requestHash string, response StoredResponse) error
	Release(ctx context.Context, caller, endpoint, key, requestHash string) error
}

type IdempotencyStore struct {
	db querier.Querier
}

func NewIdempotencyStore(db querier.Querier) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (s *IdempotencyStore) Claim(ctx context.Context, caller, endpoint, key, requestHash string) (*StoredResponse, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (caller, key, endpoint, request_hash, status)
    VALUES ($1, $2, $3, $4, 'in_progress')
    ON CONFLICT (caller, key, endpoint) DO NOTHING
  `, caller, key, endpoint, requestHash)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	var storedHash, status string
	var stored []byte
	err = s.db.QueryRow(ctx, `
    SELECT request_hash, status, response_json
    FROM idempotency_keys
    WHERE caller = $1 AND key = $2 AND endpoint = $3
  `, caller, key, endpoint).Scan(&storedHash, &status, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		// released between the insert and the read
		return nil, ErrIdempotencyInProgress
	}
	if err != nil {
		return nil, err
	}
	if storedHash != requestHash {
		return nil, ErrIdempotencyConflict
	}
	if status != idemCompleted || stored == nil {
		return nil, ErrIdempotencyInProgress
	}
	var resp StoredResponse
	if err := json.Unmarshal(stored, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

const idemCompleted = "completed"

func (s *IdempotencyStore) Save(ctx context.Context, caller, endpoint, key, requestHash string, response StoredResponse) error {
	if s == nil || s.db == nil {
		return nil
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
    UPDATE idempotency_keys
    SET status = 'completed', response_json = $5
    WHERE caller = $1 AND key = $2 AND endpoint = $3
      AND request_hash = $4 AND status = 'in_progress'
  `, caller, key, endpoint, requestHash, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, caller, endpoint, key, requestHash string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
    DELETE FROM idempotency_keys
    WHERE caller = $1 AND key = $2 AND endpoint = $3
      AND request_hash = $4 AND status = 'in_progress'
  `, caller, key, endpoint, requestHash)
	return err
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(p []byte) (int, error) {
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

// Idempotency replays the stored response of an earlier authenticated
// mutation sent with the same Idempotency-Key. Reusing a key with a different
// payload is a 409. Server errors are never stored.
func Idempotency(store IdempotencyBackend) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			caller, authed := GetCaller(r.Context())
			if key == "" || !authed || store == nil || (r.Method != http.MethodPost && r.Method != http.MethodDelete) {
				next.ServeHTTP(w, r)
				return
			}
			reqID := GetRequestID(r.Context())

			raw, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_body", "request body could not be read", reqID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))

			endpoint := r.Method + " " + r.URL.Path
			hash := RequestHash(append([]byte(endpoint+"\n"), raw...))

			stored, err := store.Claim(r.Context(), caller.String(), endpoint, key, hash)
			switch {
			case errors.Is(err, ErrIdempotencyConflict):
				api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), reqID)
				return
			case errors.Is(err, ErrIdempotencyInProgress):
				w.Header().Set("Retry-After", "1")
				api.Fail(w, http.StatusConflict, "idempotency_in_progress", err.Error(), reqID)
				return
			case err != nil:
				slog.Error("idempotency claim failed", "err", err, "requestId", reqID)
				api.Fail(w, http.StatusInternalServerError, "idempotency_error", "idempotency check failed", reqID)
				return
			case stored != nil:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			// The claim is dropped unless a replayable response gets stored,
			// including when the handler panics.
			keep := false
			defer func() {
				if keep {
					return
				}
				if err := store.Release(context.WithoutCancel(r.Context()), caller.String(), endpoint, key, hash); err != nil {
					slog.Warn("idempotency release failed", "err", err, "requestId", reqID)
				}
			}()

			capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			if capture.status >= http.StatusInternalServerError || !json.Valid(capture.body.Bytes()) {
				return
			}
			// A failed save leaves the key claimed: the command already ran
			// and must not run again under this key.
			keep = true
			resp := StoredResponse{Status: capture.status, Body: bytes.TrimSpace(capture.body.Bytes())}
			if err := store.Save(context.WithoutCancel(r.Context()), caller.String(), endpoint, key, hash, resp); err != nil {
				slog.Error("idempotency save failed", "err", err, "requestId", reqID)
			}
		})
	}
}
