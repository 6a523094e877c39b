package middleware

import (
	"context"
	"net/http"

	"storefront/internal/auth"
)

type ctxKey string

const ctxTicket ctxKey = "ticket"

// RequireTicket rejects requests without a valid hydration ticket for the
// section named by the sectionCode path value.
func RequireTicket(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, err := auth.ParseTicket(r.URL.Query().Get("ticket"))
		if err != nil || t.Section != r.PathValue("sectionCode") {
			http.Error(w, "invalid ticket", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxTicket, t)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TicketFrom(r *http.Request) (auth.Ticket, bool) {
	t, ok := r.Context().Value(ctxTicket).(auth.Ticket)
	return t, ok
}
