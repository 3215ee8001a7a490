package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{ServiceUnavailableError("down").WithError(errors.New("dial")), http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{errors.New("raw failure"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := AppErrorResponse(c, tc.err); err != nil {
			t.Fatalf("AppErrorResponse: %v", err)
		}
		if rec.Code != tc.status {
			t.Fatalf("status = %d, want %d", rec.Code, tc.status)
		}
		var body struct {
			Data []AppError `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || len(body.Data) != 1 || body.Data[0].Code != tc.code {
			t.Fatalf("unexpected body %s (%v)", rec.Body.String(), err)
		}
		if tc.status == http.StatusInternalServerError && body.Data[0].Message == "raw failure" {
			t.Fatalf("internal error text leaked")
		}
	}
}
