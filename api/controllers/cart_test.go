package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gelatokw/scoops-backend/api/middleware"
	cartsvc "github.com/gelatokw/scoops-backend/internal/cart"
	pkgerrors "github.com/gelatokw/scoops-backend/pkg/errors"
)

type fakeCartService struct {
	lastUserID   uuid.UUID
	lastLineKey  string
	lastQuantity int
	addErr       error
}

func (f *fakeCartService) GetCart(ctx context.Context, userID uuid.UUID) (cartsvc.CartDTO, error) {
	f.lastUserID = userID
	return cartsvc.CartDTO{Subtotal: "0.000"}, nil
}

func (f *fakeCartService) AddLine(ctx context.Context, userID uuid.UUID, req cartsvc.AddLineRequest) (cartsvc.CartDTO, error) {
	f.lastUserID = userID
	if f.addErr != nil {
		return cartsvc.CartDTO{}, f.addErr
	}
	return cartsvc.CartDTO{Subtotal: "2.150"}, nil
}

func (f *fakeCartService) UpdateQuantity(ctx context.Context, userID uuid.UUID, lineKey string, quantity int) (cartsvc.CartDTO, error) {
	f.lastUserID = userID
	f.lastLineKey = lineKey
	f.lastQuantity = quantity
	return cartsvc.CartDTO{}, nil
}

func (f *fakeCartService) RemoveLine(ctx context.Context, userID uuid.UUID, lineKey string) (cartsvc.CartDTO, error) {
	f.lastLineKey = lineKey
	return cartsvc.CartDTO{}, nil
}

func (f *fakeCartService) Clear(ctx context.Context, userID uuid.UUID) (cartsvc.CartDTO, error) {
	return cartsvc.CartDTO{}, nil
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withRouteParam(r *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func decodeErrorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Error.Code
}

func TestCartFetchRequiresUserContext(t *testing.T) {
	svc := &fakeCartService{}
	handler := CartFetch(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddLinePassesBodyThrough(t *testing.T) {
	svc := &fakeCartService{}
	handler := CartAddLine(svc, nil)
	userID := uuid.New()

	body := `{"flavor_id":"` + uuid.NewString() + `","quantity":2}`
	req := authedRequest(http.MethodPost, "/api/v1/cart/lines", body, userID)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastUserID != userID {
		t.Fatalf("expected user %s got %s", userID, svc.lastUserID)
	}
}

func TestCartAddLineRejectsUnknownFields(t *testing.T) {
	svc := &fakeCartService{}
	handler := CartAddLine(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/cart/lines", `{"nope":true}`, uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code got %s", code)
	}
}

func TestCartAddLineSurfacesServiceError(t *testing.T) {
	svc := &fakeCartService{addErr: pkgerrors.New(pkgerrors.CodeNotFound, "flavor not found")}
	handler := CartAddLine(svc, nil)

	body := `{"flavor_id":"` + uuid.NewString() + `","quantity":1}`
	req := authedRequest(http.MethodPost, "/api/v1/cart/lines", body, uuid.New())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartUpdateLineUsesPathKey(t *testing.T) {
	svc := &fakeCartService{}
	handler := CartUpdateLine(svc, nil)
	userID := uuid.New()

	req := authedRequest(http.MethodPatch, "/api/v1/cart/lines/abc123", `{"quantity":4}`, userID)
	req = withRouteParam(req, "lineKey", "abc123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastLineKey != "abc123" {
		t.Fatalf("expected line key abc123 got %s", svc.lastLineKey)
	}
	if svc.lastQuantity != 4 {
		t.Fatalf("expected quantity 4 got %d", svc.lastQuantity)
	}
}
