package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"rostersync/internal/notification/service"
	dErrors "rostersync/pkg/domain-errors"
	"rostersync/pkg/testutil"
)

type stubSweeper struct {
	res   *service.Result
	err   error
	calls int
}

func (s *stubSweeper) Sweep(context.Context) (*service.Result, error) {
	s.calls++
	return s.res, s.err
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), "secret").Register(r)
	return r
}

func TestSweepHandler(t *testing.T) {
	testutil.Given(t, "an operator with the admin token", func(t *testing.T) {
		testutil.When(t, "the sweep succeeds", func(t *testing.T) {
			svc := &stubSweeper{res: &service.Result{Processed: 3, Message: "Processed 3 shift change notifications"}}
			req := testutil.WithAdminToken(testutil.NewRequest(t, http.MethodPost, "/notifications/sweep"), "secret")
			rec := testutil.DoRequest(newRouter(svc), req)

			testutil.Then(t, "the processed count is returned", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusOK)
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				body := testutil.UnmarshalResponse[service.Result](t, rec)
				assert.Equal(t, 3, body.Processed)
				assert.Equal(t, "Processed 3 shift change notifications", body.Message)
			})
			testutil.And(t, "the sweep ran once", func(t *testing.T) {
				assert.Equal(t, 1, svc.calls)
			})
		})

		testutil.When(t, "the store fails", func(t *testing.T) {
			svc := &stubSweeper{err: dErrors.Wrap(errors.New("db down"), dErrors.CodeInternal, "failed to load pending changes")}
			req := testutil.WithAdminToken(testutil.NewRequest(t, http.MethodPost, "/notifications/sweep"), "secret")
			rec := testutil.DoRequest(newRouter(svc), req)

			testutil.Then(t, "the description is hidden", func(t *testing.T) {
				testutil.AssertStatus(t, rec, http.StatusInternalServerError)
				body := testutil.UnmarshalErrorResponse(t, rec)
				assert.Equal(t, string(dErrors.CodeInternal), body["error"])
				assert.NotContains(t, body, "error_description")
			})
		})
	})

	testutil.Given(t, "a caller without a token", func(t *testing.T) {
		svc := &stubSweeper{}
		rec := testutil.DoRequest(newRouter(svc), testutil.NewRequest(t, http.MethodPost, "/notifications/sweep"))

		testutil.Then(t, "the sweep is not run", func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Zero(t, svc.calls)
		})
	})
}
