package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartJSON = `{"chart":{"result":[{"meta":{"symbol":"AAPL","gmtoffset":-18000},
"timestamp":[1704205800,1704292200,1704378600],
"indicators":{"quote":[{"open":[187.15,184.22,null],"high":[188.44,185.88,null],
"low":[183.89,183.43,null],"close":[185.64,184.25,null],"volume":[82488700,58414500,null]}]}}],"error":null}}`

func TestYahooSource_Load(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	src := NewYahooSource([]string{"AAPL"}, 300, "")
	src.BaseURL = srv.URL

	raw, err := src.Load(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "interval=1d&range=1y", gotQuery)

	require.Len(t, raw.Rows, 3)
	assert.True(t, raw.Rows[0].Complete())
	assert.Equal(t, 185.64, raw.Rows[0].Close.Unwrap())
	assert.Equal(t, int64(82488700), raw.Rows[0].Volume.Unwrap())
	assert.Equal(t, 2, raw.Rows[0].Date.Unwrap().Day(), "exchange-local date")
	assert.Equal(t, time.January, raw.Rows[0].Date.Unwrap().Month())
	assert.False(t, raw.Rows[2].Complete())
}

func TestYahooSource_MapsIndexSymbol(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(chartJSON))
	}))
	defer srv.Close()

	src := NewYahooSource(nil, 30, "")
	src.BaseURL = srv.URL
	_, err := src.Load(context.Background(), "SPX500")
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/^GSPC", gotPath)

	_, err = src.Symbols(context.Background())
	assert.Error(t, err)
}

func TestYahooSource_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v8/finance/chart/DOWN":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/v8/finance/chart/GONE":
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		default:
			w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		}
	}))
	defer srv.Close()

	src := NewYahooSource([]string{"X"}, 300, "")
	src.BaseURL = srv.URL

	_, err := src.Load(context.Background(), "DOWN")
	assert.ErrorContains(t, err, "status 500")
	_, err = src.Load(context.Background(), "GONE")
	assert.ErrorContains(t, err, "delisted")
	_, err = src.Load(context.Background(), "EMPTY")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestYahooRange(t *testing.T) {
	assert.Equal(t, "1mo", yahooRange(20))
	assert.Equal(t, "1y", yahooRange(300))
	assert.Equal(t, "5y", yahooRange(1000))
}
