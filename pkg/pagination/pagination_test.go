package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, 0},
		{"?limit=20&offset=40", 20, 40},
		{"?limit=25&page=3", 25, 50},
		{"?limit=25&page=3&offset=5", 25, 5},
		{"?limit=5000", MaxLimit, 0},
		{"?limit=0&offset=-5", DefaultLimit, 0},
		{"?limit=abc&page=x", DefaultLimit, 0},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/patients"+tc.query, nil)
			p := Parse(echo.New().NewContext(req, httptest.NewRecorder()))
			if p.Limit != tc.limit || p.Offset != tc.offset {
				t.Errorf("got limit=%d offset=%d, want %d/%d", p.Limit, p.Offset, tc.limit, tc.offset)
			}
		})
	}
}

func TestParams_More(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	for total, want := range map[int]bool{0: false, 20: false, 21: true} {
		if got := p.More(total); got != want {
			t.Errorf("More(%d) = %v, want %v", total, got, want)
		}
	}
}

func TestNewPage_EmptyEncodesAsArray(t *testing.T) {
	page := NewPage[string](nil, 0, Params{Limit: 10})
	b, err := json.Marshal(page)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"data":[],"total":0,"limit":10,"offset":0,"has_more":false}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}
