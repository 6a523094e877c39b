package transfer

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_transfer_ops_total",
	Help: "Transfer store operations by backend, operation and result",
}, []string{"backend", "op", "result"}) // result: "ok" | "miss" | "error"

// Instrument counts every operation on s under the backend label.
func Instrument(s Store, backend string) Store {
	if s == nil {
		return nil
	}
	return &instrumented{inner: s, backend: backend}
}

type instrumented struct {
	inner   Store
	backend string
}

func (s *instrumented) observe(op string, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "miss"
	case err != nil:
		result = "error"
	}
	opsTotal.WithLabelValues(s.backend, op, result).Inc()
}

func (s *instrumented) Has(ctx context.Context, key string) (bool, error) {
	ok, err := s.inner.Has(ctx, key)
	s.observe("has", err)
	return ok, err
}

func (s *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.inner.Get(ctx, key)
	s.observe("get", err)
	return b, err
}

func (s *instrumented) Set(ctx context.Context, key string, value []byte) error {
	err := s.inner.Set(ctx, key, value)
	s.observe("set", err)
	return err
}

func (s *instrumented) Remove(ctx context.Context, key string) error {
	err := s.inner.Remove(ctx, key)
	s.observe("remove", err)
	return err
}

func (s *instrumented) Take(ctx context.Context, key string) ([]byte, error) {
	b, err := s.inner.Take(ctx, key)
	s.observe("take", err)
	return b, err
}
