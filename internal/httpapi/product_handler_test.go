package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	catalogdomain "github.com/Ahmedbennaya/fini-storefront/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogMock struct {
	products []*catalogdomain.Product
	err      error
}

func (m *catalogMock) GetAllProducts(_ context.Context) ([]*catalogdomain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *catalogMock) GetProduct(_ context.Context, id int64) (*catalogdomain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, catalogdomain.ErrProductNotFound
}

func sampleProducts() []*catalogdomain.Product {
	sale := 39.9
	return []*catalogdomain.Product{
		{ID: 1, Name: "Linen Curtain", Price: 49.9, SalePrice: &sale, Stock: 12, ImageURL: "/img/linen.jpg"},
		{ID: 2, Name: "Tie-back", Price: 5, Stock: 50, ImageURL: "/img/tieback.jpg"},
	}
}

func TestListProducts(t *testing.T) {
	handler := NewProductHandler(&catalogMock{products: sampleProducts()}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.ListProducts(recorder, httptest.NewRequest("GET", "/api/v1/products", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp []ProductDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	require.Len(t, resp, 2)
	require.NotNil(t, resp[0].SalePrice)
	assert.Equal(t, 39.9, *resp[0].SalePrice)
	assert.Nil(t, resp[1].SalePrice)
}

func TestListProducts_Error(t *testing.T) {
	handler := NewProductHandler(&catalogMock{err: errors.New("db down")}, 5*time.Second)
	recorder := httptest.NewRecorder()

	handler.ListProducts(recorder, httptest.NewRequest("GET", "/api/v1/products", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestGetProduct_ByID(t *testing.T) {
	handler := NewProductHandler(&catalogMock{products: sampleProducts()}, 5*time.Second)
	recorder := httptest.NewRecorder()

	req := withURLParam(httptest.NewRequest("GET", "/api/v1/products/2", nil), "product_id", "2")
	handler.GetProduct(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp ProductDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "Tie-back", resp.Name)
}

func TestGetProduct_NotFoundResponse(t *testing.T) {
	handler := NewProductHandler(&catalogMock{products: sampleProducts()}, 5*time.Second)
	recorder := httptest.NewRecorder()

	req := withURLParam(httptest.NewRequest("GET", "/api/v1/products/404", nil), "product_id", "404")
	handler.GetProduct(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
