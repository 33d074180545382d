package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/handler"
)

func TestParcelVerify(t *testing.T) {
	env := newTestEnv(t)
	if err := env.db.Parcels().Create(context.Background(), &domain.Parcel{ParcelNumber: "01-234", Address: "9 Elm St"}); err != nil {
		t.Fatalf("create parcel: %v", err)
	}

	body, ct := multipartBody(t, nil, []formFile{{
		field: "file", filename: "parcels.csv", contentType: "text/csv",
		data: []byte("PIN,owner\n01-234,Lee\n99-999,Kim\n01-234,Lee\n"),
	}})
	req := httptest.NewRequest(http.MethodPost, "/parcels/verify", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authorize(req))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res handler.ParcelCheckDTO
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Total != 2 || len(res.Found) != 1 || res.Found[0].Address != "9 Elm St" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "99-999" {
		t.Fatalf("unexpected missing %v", res.Missing)
	}
}

func TestParcelVerify_EmptyFile(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, nil, []formFile{{field: "file", filename: "empty.csv", contentType: "text/csv", data: []byte("parcel_id\n")}})
	req := httptest.NewRequest(http.MethodPost, "/parcels/verify", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, env.authorize(req))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
