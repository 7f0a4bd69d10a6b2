package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"MarketPulse/internal/model"

	"github.com/moznion/go-optional"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource loads daily bars from the Yahoo Finance chart API.
type YahooSource struct {
	Client      *http.Client
	BaseURL     string
	HistoryDays int
	SymbolList  []string
	SymbolMap   map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooSource creates a Yahoo source for the given symbols.
func NewYahooSource(symbols []string, historyDays int, proxyURL string) *YahooSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooSource{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL:     yahooBaseURL,
		HistoryDays: historyDays,
		SymbolList:  symbols,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooSource) Name() string { return "yahoo" }

func (f *YahooSource) Symbols(_ context.Context) ([]string, error) {
	if len(f.SymbolList) == 0 {
		return nil, fmt.Errorf("yahoo: no symbols configured")
	}
	return f.SymbolList, nil
}

func (f *YahooSource) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
// Quote cells are pointers because Yahoo sends null for halted sessions.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int    `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func cellAt(vals []*float64, i int) optional.Option[float64] {
	if i >= len(vals) || vals[i] == nil {
		return optional.None[float64]()
	}
	return optional.Some(*vals[i])
}

// yahooRange picks the smallest chart range covering days calendar days.
func yahooRange(days int) string {
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	default:
		return "5y"
	}
}

// Load fetches daily bars for symbol. Null quote cells become absent fields
// so that the validator reports them.
func (f *YahooSource) Load(ctx context.Context, symbol string) (*model.RawSeries, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), yahooRange(f.HistoryDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: status %d, body: %s", symbol, resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	loc := time.FixedZone(result.Meta.Symbol, result.Meta.GMTOffset)

	raw := &model.RawSeries{
		Symbol:  symbol,
		Source:  f.Name(),
		Columns: model.RequiredColumns,
		Rows:    make([]model.RawBar, 0, len(result.Timestamp)),
	}
	for i, ts := range result.Timestamp {
		vol := optional.None[int64]()
		if v := cellAt(quote.Volume, i); v.IsSome() {
			vol = optional.Some(int64(v.Unwrap()))
		}
		raw.Rows = append(raw.Rows, model.RawBar{
			Row:    i + 1,
			Date:   optional.Some(time.Unix(ts, 0).In(loc)),
			Open:   cellAt(quote.Open, i),
			High:   cellAt(quote.High, i),
			Low:    cellAt(quote.Low, i),
			Close:  cellAt(quote.Close, i),
			Volume: vol,
		})
	}
	return raw, nil
}
