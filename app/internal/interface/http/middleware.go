package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	cartuc "example.com/mechstore/app/internal/usecase/cart"
)

const guestHeader = "X-Guest-ID"

type ctxKey int

const ctxSessionKey ctxKey = iota

var (
	errUnauthenticated = errors.New("unauthenticated")
	errNoSession       = errors.New("missing session: send a bearer token or " + guestHeader)
	errInvalidGuestID  = errors.New("invalid " + guestHeader)
)

// requestSession is the resolved caller. GuestID is kept for authenticated
// requests too so a guest cart can be merged on sign in.
type requestSession struct {
	cartuc.Session
	GuestID string
}

func (a *API) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		guestID, err := parseGuestID(r.Header.Get(guestHeader))
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}

		var sess requestSession
		if header := r.Header.Get("Authorization"); header != "" {
			id, err := a.authSvc.Authenticate(r.Context(), header)
			if err != nil {
				respondError(w, http.StatusUnauthorized, errUnauthenticated)
				return
			}
			sess = requestSession{Session: cartuc.UserSession(id.UserID, id.Token), GuestID: guestID}
		} else {
			if guestID == "" {
				respondError(w, http.StatusUnauthorized, errNoSession)
				return
			}
			sess = requestSession{Session: cartuc.GuestSession(guestID), GuestID: guestID}
		}

		ctx := context.WithValue(r.Context(), ctxSessionKey, &sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := getSession(r.Context())
		if sess == nil || !sess.Authenticated() {
			respondError(w, http.StatusUnauthorized, errUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			a.logger.Info("http request",
				zap.String("request_id", chimw.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}

func parseGuestID(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errInvalidGuestID
	}
	return id.String(), nil
}

func getSession(ctx context.Context) *requestSession {
	if sess, ok := ctx.Value(ctxSessionKey).(*requestSession); ok {
		return sess
	}
	return nil
}
