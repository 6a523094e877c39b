package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/catalog"
	"storefront/internal/logging"
	"storefront/internal/notify"
)

// upstream maps catalog failures to responses and raises operator alerts.
type upstream struct {
	alerts  *notify.Throttled
	baseURL string
}

func statusFor(err error) int {
	if errors.Is(err, catalog.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// failed alerts on server and network failures. Client errors and requests
// the caller abandoned are only logged.
func (u *upstream) failed(ctx context.Context, sectionCode string, err error) {
	log := logging.From(ctx)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		log.Debug("catalog.abandoned", "err", err)
		return
	}
	class := catalog.Classify(err)
	log.Warn("catalog.failed", "class", class, "err", err)
	if u == nil || u.alerts == nil {
		return
	}
	switch class {
	case catalog.ErrorClassServer, catalog.ErrorClassNetwork, catalog.ErrorClassDecode:
	default:
		return
	}
	msg := fmt.Sprintf("catalog api %s failure on %s: %v", class, sectionLink(u.baseURL, sectionCode), err)
	go u.alerts.AlertKey(context.WithoutCancel(ctx), "catalog:"+sectionCode+":"+string(class), msg)
}
