package erpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
	"github.com/andresuchdata/erp-reports/backend-go/internal/erptest"
	"github.com/andresuchdata/erp-reports/backend-go/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoices(n int) []domain.Row {
	rows := make([]domain.Row, n)
	for i := range rows {
		rows[i] = domain.Row{"id": i + 1, "grandTotal": 10.5}
	}
	return rows
}

func TestListExtractsPayloadField(t *testing.T) {
	backend := erptest.New(t)
	backend.Token = "tok"
	backend.Seed("invoice", "invoices", invoices(3))

	c := New(backend.URL(), time.Second, nil)
	res, err := c.List(context.Background(), session.Snapshot{AccessToken: "tok"}, "/invoice", nil, "invoices")
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, 3, res.Total)
}

func TestListSendsBearerToken(t *testing.T) {
	backend := erptest.New(t)
	backend.Token = "tok"
	backend.Seed("invoice", "invoices", invoices(1))

	c := New(backend.URL(), time.Second, nil)
	_, err := c.List(context.Background(), session.Snapshot{AccessToken: "wrong"}, "/invoice", nil, "invoices")

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.True(t, domain.IsSessionError(err))
}

func TestListSurfacesBackendMessage(t *testing.T) {
	backend := erptest.New(t)
	backend.Fail("invoice", http.StatusBadRequest, `{"message":"Customer not found"}`)

	c := New(backend.URL(), time.Second, nil)
	_, err := c.List(context.Background(), session.Snapshot{AccessToken: "tok"}, "/invoice", nil, "invoices")

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Customer not found", apiErr.Message)
	assert.Equal(t, "Customer not found", domain.UserMessage(err))
}

func TestListFallbackMessage(t *testing.T) {
	backend := erptest.New(t)
	backend.Fail("invoice", http.StatusInternalServerError, `<html>oops</html>`)

	c := New(backend.URL(), time.Second, nil)
	_, err := c.List(context.Background(), session.Snapshot{AccessToken: "tok"}, "/invoice", nil, "invoices")

	var apiErr *domain.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, domain.FallbackErrorMessage, apiErr.Message)
}

func TestListMissingPayloadIsEmpty(t *testing.T) {
	backend := erptest.New(t)
	backend.Seed("invoice", "data", invoices(2))

	c := New(backend.URL(), time.Second, nil)
	res, err := c.List(context.Background(), session.Snapshot{AccessToken: "tok"}, "/invoice", nil, "invoices")
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "message", body: `{"message":"Stock too low"}`, want: "Stock too low"},
		{name: "blank message", body: `{"message":"  "}`, want: domain.FallbackErrorMessage},
		{name: "list message", body: `{"message":["a","b"]}`, want: "a; b"},
		{name: "no message", body: `{"error":"x"}`, want: domain.FallbackErrorMessage},
		{name: "not json", body: `bad gateway`, want: domain.FallbackErrorMessage},
		{name: "empty", body: ``, want: domain.FallbackErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage([]byte(tt.body)))
		})
	}
}

func TestDecodeListShapes(t *testing.T) {
	res, err := decodeList([]byte(`[{"id":1},{"id":2}]`), "data")
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, -1, res.Total)

	res, err = decodeList([]byte(`{"customers":[{"id":1}],"totalCount":"41"}`), "customers")
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 41, res.Total)

	res, err = decodeList([]byte(`{"customers":null}`), "customers")
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestEntityActions(t *testing.T) {
	backend := erptest.New(t)
	backend.Seed("product", "products", []domain.Row{{"id": "5", "name": "Urea"}})
	c := New(backend.URL(), time.Second, nil)
	snap := session.Snapshot{AccessToken: "tok"}
	ctx := context.Background()

	row, err := c.Get(ctx, snap, "/product/5")
	require.NoError(t, err)
	assert.Equal(t, "Urea", row["name"])

	created, err := c.Send(ctx, snap, http.MethodPost, "/product", domain.Row{"name": "DAP"})
	require.NoError(t, err)
	assert.Equal(t, "DAP", created["name"])

	updated, err := c.Send(ctx, snap, http.MethodPut, "/product/5", domain.Row{"name": "Urea 46%"})
	require.NoError(t, err)
	assert.Equal(t, "Urea 46%", updated["name"])

	_, err = c.Send(ctx, snap, http.MethodDelete, "/product/delete/5", nil)
	require.NoError(t, err)
	assert.Len(t, backend.Rows("product"), 1)
}

func TestRequestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	srv := newServer(t, slow)

	c := New(srv.URL, 20*time.Millisecond, nil)
	_, err := c.List(context.Background(), session.Snapshot{AccessToken: "tok"}, "/slow", nil, "data")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
