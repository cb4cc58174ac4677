package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/locoloco/internal/service/access"
	"github.com/vladislavdragonenkov/locoloco/internal/service/catalog"
	"github.com/vladislavdragonenkov/locoloco/internal/service/checkout"
	"github.com/vladislavdragonenkov/locoloco/internal/service/payment"
	"github.com/vladislavdragonenkov/locoloco/internal/storage/memory"
)

type apiFixture struct {
	admin    *AdminHandler
	public   *PublicHandler
	payments *payment.MockService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	restaurants := memory.NewRestaurantRepository()
	orders := memory.NewOrderRepository()
	counters := memory.NewCounterRepository()
	payments := payment.NewMockService()
	guard := access.NewGuard(restaurants, orders, nil)

	catalogSvc := catalog.NewService(restaurants, payments, guard,
		catalog.WithBlobStorage(memory.NewBlobStore()))
	checkoutSvc := checkout.NewService(restaurants, orders, counters, payments, guard)

	return &apiFixture{
		admin:    NewAdminHandler(catalogSvc, checkoutSvc, nil),
		public:   NewPublicHandler(catalogSvc, nil),
		payments: payments,
	}
}

func (f *apiFixture) do(t *testing.T, identity, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if identity != "" {
		req.Header.Set(identityHeader, identity)
	}
	rec := httptest.NewRecorder()
	f.admin.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) createRestaurant(t *testing.T, identity, name string) restaurantResponse {
	t.Helper()

	rec := f.do(t, identity, http.MethodPost, "/restaurants", map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp restaurantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAdmin_CreateRestaurant(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.createRestaurant(t, "vendor@example.com", "casa-uno")
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "vendor@example.com", resp.OwnerEmail)
	assert.False(t, resp.PaymentEnabled)
}

func TestAdmin_IdentityFallback(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.createRestaurant(t, "", "casa-uno")
	assert.Equal(t, defaultIdentity, resp.OwnerEmail)
}

func TestAdmin_CreateRestaurant_Validation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, "vendor@example.com", http.MethodPost, "/restaurants", map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_PatchRestaurant_CrossOwnerForbidden(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createRestaurant(t, "vendor@example.com", "casa-uno")

	rec := f.do(t, "intruder@example.com", http.MethodPatch, "/restaurants/"+created.ID,
		map[string]any{"name": "stolen"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "vendor@example.com", http.MethodPatch, "/restaurants/"+created.ID,
		map[string]any{"name": "casa-dos"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAdmin_PatchRestaurant_NotFoundAsForbidden(t *testing.T) {
	f := newAPIFixture(t)

	// Отсутствующий ресурс трактуется как отказ в доступе, не как 404.
	rec := f.do(t, "vendor@example.com", http.MethodPatch, "/restaurants/missing",
		map[string]any{"name": "ghost"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdmin_ConnectRestaurant(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createRestaurant(t, "vendor@example.com", "casa-uno")

	rec := f.do(t, "vendor@example.com", http.MethodPost, "/restaurants/"+created.ID+"/connect",
		map[string]any{"code": "auth-code"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp connectRestaurantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acct_mock_1", resp.Account)

	// Повторный connect отклоняется конфликтом.
	rec = f.do(t, "vendor@example.com", http.MethodPost, "/restaurants/"+created.ID+"/connect",
		map[string]any{"code": "auth-code-2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdmin_ConnectRestaurant_ProviderFailure(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createRestaurant(t, "vendor@example.com", "casa-uno")
	f.payments.ConnectErr = fmt.Errorf("bad code")

	rec := f.do(t, "vendor@example.com", http.MethodPost, "/restaurants/"+created.ID+"/connect",
		map[string]any{"code": "bad"})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestAdmin_AttachFile(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createRestaurant(t, "vendor@example.com", "casa-uno")

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "menu.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("menu"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/restaurants/"+created.ID+"/files", &buf)
	req.Header.Set(identityHeader, "vendor@example.com")
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	f.admin.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp attachFileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Ref)
}

func TestAdmin_CreateOrder(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createRestaurant(t, "vendor@example.com", "casa-uno")

	rec := f.do(t, "diner@example.com", http.MethodPost, "/orders", map[string]any{
		"restaurant_id": created.ID,
		"amount_minor":  900,
		"source":        "tok_visa",
		"basket":        []map[string]any{{"dish": "tapas"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Number)
	assert.Equal(t, "open", resp.Status)
	assert.Equal(t, "diner@example.com", resp.OwnerEmail)
}

func TestAdmin_CreateOrder_ErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createRestaurant(t, "vendor@example.com", "casa-uno")

	rec := f.do(t, "diner@example.com", http.MethodPost, "/orders", map[string]any{
		"restaurant_id": "missing",
		"amount_minor":  900,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "diner@example.com", http.MethodPost, "/orders", map[string]any{
		"restaurant_id": created.ID,
		"amount_minor":  0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_CreateOrder_PaymentFailure(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createRestaurant(t, "vendor@example.com", "casa-uno")
	rec := f.do(t, "vendor@example.com", http.MethodPost, "/restaurants/"+created.ID+"/connect",
		map[string]any{"code": "auth-code"})
	require.Equal(t, http.StatusOK, rec.Code)

	f.payments.CaptureErr = fmt.Errorf("card declined")
	rec = f.do(t, "diner@example.com", http.MethodPost, "/orders", map[string]any{
		"restaurant_id": created.ID,
		"amount_minor":  900,
		"source":        "tok_bad",
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestAdmin_PatchOrder(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createRestaurant(t, "vendor@example.com", "casa-uno")

	rec := f.do(t, "diner@example.com", http.MethodPost, "/orders", map[string]any{
		"restaurant_id": created.ID,
		"amount_minor":  900,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))

	// Клиент не владеет заведением и не может закрыть заказ.
	rec = f.do(t, "diner@example.com", http.MethodPatch, "/orders/"+order.ID,
		map[string]any{"status": "closed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "vendor@example.com", http.MethodPatch, "/orders/"+order.ID,
		map[string]any{"status": "closed"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "vendor@example.com", http.MethodPatch, "/orders/"+order.ID,
		map[string]any{"status": "open"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_ListOrders(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createRestaurant(t, "vendor@example.com", "casa-uno")

	rec := f.do(t, "diner@example.com", http.MethodPost, "/orders", map[string]any{
		"restaurant_id": created.ID,
		"amount_minor":  900,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, "diner@example.com", http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	assert.Len(t, mine, 1)

	rec = f.do(t, "vendor@example.com", http.MethodGet, "/restaurants/"+created.ID+"/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var vendorView []orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vendorView))
	assert.Len(t, vendorView, 1)

	rec = f.do(t, "intruder@example.com", http.MethodGet, "/restaurants/"+created.ID+"/orders", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, "diner@example.com", http.MethodGet, "/orders?status=closed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var closed []orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &closed))
	assert.Empty(t, closed)
}

func TestAdmin_CORSPreflight(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/restaurants", nil)
	rec := httptest.NewRecorder()
	f.admin.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPublic_ListAndPing(t *testing.T) {
	f := newAPIFixture(t)
	f.createRestaurant(t, "vendor@example.com", "casa-uno")

	req := httptest.NewRequest(http.MethodGet, "/restaurants", nil)
	rec := httptest.NewRecorder()
	f.public.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []publicRestaurantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "casa-uno", list[0].Name)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec = httptest.NewRecorder()
	f.public.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}
