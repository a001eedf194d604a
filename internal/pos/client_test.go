package pos

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dineflow/ordersync/internal/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Params{
		Config: config.Config{API: config.APIConfig{
			BaseURL:          baseURL,
			PageSize:         100,
			RequestTimeout:   5,
			APIClient:        7,
			APIClientVersion: 2,
		}},
		Logger: zap.NewNop(),
	})
}

func testJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return fmt.Sprintf("%s.%s.%s",
		enc.EncodeToString([]byte(`{"alg":"none"}`)),
		enc.EncodeToString(payload),
		enc.EncodeToString([]byte("sig")))
}

func TestLoginReadsCompanyIDFromToken(t *testing.T) {
	token := testJWT(t, map[string]any{"CompanyID": "987"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Account/Login", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "a@b.c", q.Get("email"))
		assert.Equal(t, "pw", q.Get("password"))
		assert.Equal(t, "7", q.Get("apiClient"))
		assert.Equal(t, "2", q.Get("apiClientVersion"))
		fmt.Fprintf(w, `{"SessionToken":%q,"Company":{"ID":1,"Name":"Dine Group"},"Restaurant":{"ID":42,"Name":"Soho"}}`, token)
	}))
	defer srv.Close()

	s, err := newTestClient(srv.URL).Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, token, s.Token)
	assert.EqualValues(t, 987, s.CompanyID, "token claim wins over body")
	assert.EqualValues(t, 42, s.RestaurantID)
	assert.Equal(t, "Soho", s.RestaurantName)
}

func TestLoginFallsBackToBodyCompanyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"SessionToken":"opaque-token","Company":{"ID":55,"Name":"Dine Group"},"Restaurant":{"ID":42,"Name":"Soho"}}`)
	}))
	defer srv.Close()

	s, err := newTestClient(srv.URL).Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.EqualValues(t, 55, s.CompanyID)
}

func TestLoginRejectsMissingIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"SessionToken":"opaque-token"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Login(context.Background(), "a@b.c", "pw")
	assert.Error(t, err)

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Company":{"ID":1}}`)
	}))
	defer srv2.Close()

	_, err = newTestClient(srv2.URL).Login(context.Background(), "a@b.c", "pw")
	assert.Error(t, err, "missing session token")
}

func TestListOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Order/List", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("pageSize"))
		assert.Equal(t, "3", q.Get("pageIndex"))
		assert.Equal(t, "tok", q.Get("sessionToken"))
		fmt.Fprint(w, `{"Data":[
			{"ID":9002,"CreationDate":"/Date(1577923200000)/","Total":31.5,"Status":5},
			{"ID":9001,"CreationDate":"/Date(1577836800000)/","Total":18.0,"Status":5}
		],"ErrorCode":0}`)
	}))
	defer srv.Close()

	orders, err := newTestClient(srv.URL).ListOrders(context.Background(), &Session{Token: "tok"}, 3)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.EqualValues(t, 9002, orders[0].ID)
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), orders[0].CreationDate.Time)
}

func TestListOrdersErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Data":null,"ErrorCode":401,"Message":"session expired"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ListOrders(context.Background(), &Session{Token: "tok"}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session expired")
}

func TestCallsRequireSession(t *testing.T) {
	c := newTestClient("http://unused")
	_, err := c.ListOrders(context.Background(), nil, 1)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	_, err = c.FetchOrderDetail(context.Background(), &Session{}, 9001)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestFetchOrderDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order/Detail", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "9001", q.Get("ID"))
		assert.Equal(t, "tok", q.Get("SessionToken"))
		fmt.Fprint(w, `{"Data":{
			"ID":9001,
			"OrderMethod":1,
			"DeliveryType":1,
			"SubTotal":20.0,
			"Total":24.5,
			"CreationDate":"/Date(1577836800000)/",
			"Restaurant":{"ID":42,"Name":"Soho","MenuID":5},
			"Customer":{"ID":77,"FullName":"Pat Smith","BirthDate":null},
			"CustomerAddress":{"ID":300,"CustomerID":77,"Street1":"1 High St"},
			"Promotion":{"ID":12,"ExternalID":"not-a-number","Name":"2FOR1"},
			"Payments":[{"ID":501,"PaymentMethodType":2,"Amount":24.5}]
		},"ErrorCode":0}`)
	}))
	defer srv.Close()

	d, err := newTestClient(srv.URL).FetchOrderDetail(context.Background(), &Session{Token: "tok"}, 9001)
	require.NoError(t, err)
	assert.EqualValues(t, 9001, d.ID)
	assert.EqualValues(t, 0, d.Promotion.ExternalID, "non-numeric external id decodes to zero")

	order := d.OrderModel()
	require.NotNil(t, order.CustomerAddressID, "delivery orders keep the address link")
	assert.EqualValues(t, 300, *order.CustomerAddressID)
	require.NotNil(t, order.PromotionID)
	assert.EqualValues(t, 12, *order.PromotionID)

	payments := d.PaymentModels()
	require.Len(t, payments, 1)
	assert.EqualValues(t, 9001, payments[0].OrderID)
	assert.EqualValues(t, 42, payments[0].RestaurantID)
}

func TestOrderModelPickupDropsAddress(t *testing.T) {
	d := &OrderDetail{
		ID:              9002,
		OrderMethod:     2,
		CustomerAddress: &CustomerAddressPayload{ID: 300},
		Restaurant:      RestaurantPayload{ID: 42},
	}
	order := d.OrderModel()
	assert.Nil(t, order.CustomerAddressID, "address only linked for delivery orders")
}

func TestDecodeJWTCompanyID(t *testing.T) {
	assert.EqualValues(t, 0, decodeJWTCompanyID("opaque"))
	assert.EqualValues(t, 0, decodeJWTCompanyID("a.b.c"))

	tok := testJWT(t, map[string]any{"CompanyID": 321})
	assert.EqualValues(t, 321, decodeJWTCompanyID(tok))
}
