package datafetcher

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	quoteListURL   = "https://push2.eastmoney.com/api/qt/ulist.np/get"
	stockDetailURL = "https://push2.eastmoney.com/api/qt/stock/get"
	suggestURL     = "https://searchapi.eastmoney.com/api/suggest/get"

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
)

// DataFetcher fetches A-share data from the Eastmoney quote API.
type DataFetcher struct {
	httpClient *http.Client
}

// NewDataFetcher creates a new data fetcher. The timeout bounds every
// provider request.
func NewDataFetcher(timeout time.Duration) *DataFetcher {
	return &DataFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// StockInfoData is basic per-symbol information from the provider.
type StockInfoData struct {
	Symbol   string
	Name     string
	Market   string
	Sector   string
	Industry string
}

// QuoteData is a realtime quote for one symbol.
type QuoteData struct {
	Symbol        string
	Name          string
	CurrentPrice  float64
	OpenPrice     float64
	HighPrice     float64
	LowPrice      float64
	ClosePrice    float64 // previous close
	Volume        int64
	Amount        float64
	ChangeAmount  float64
	ChangePercent float64
	Timestamp     time.Time
}

// SearchResult is a symbol search hit.
type SearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// emNumber decodes Eastmoney numeric fields, which come back as "-"
// for suspended stocks and occasionally as quoted strings.
type emNumber float64

func (n *emNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "-" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = emNumber(f)
	return nil
}

type quoteListResponse struct {
	Data struct {
		Total int `json:"total"`
		Diff  []struct {
			Code      string   `json:"f12"`
			Name      string   `json:"f14"`
			Price     emNumber `json:"f2"`
			Volume    emNumber `json:"f5"`
			Amount    emNumber `json:"f6"`
			High      emNumber `json:"f15"`
			Low       emNumber `json:"f16"`
			Open      emNumber `json:"f17"`
			PrevClose emNumber `json:"f18"`
		} `json:"diff"`
	} `json:"data"`
}

type stockDetailResponse struct {
	Data struct {
		Code     string `json:"f57"`
		Name     string `json:"f58"`
		Industry string `json:"f127"`
		Concept  string `json:"f128"`
	} `json:"data"`
}

type suggestResponse struct {
	QuotationCodeTable struct {
		Data []struct {
			Code string `json:"Code"`
			Name string `json:"Name"`
		} `json:"Data"`
	} `json:"QuotationCodeTable"`
}

// FetchInfo fetches basic information for a single symbol.
func (df *DataFetcher) FetchInfo(symbol string) (*StockInfoData, error) {
	params := url.Values{}
	params.Set("secid", secID(symbol))
	params.Set("invt", "2")
	params.Set("fltt", "2")
	params.Set("fields", "f57,f58,f127,f128")

	body, err := df.get(stockDetailURL, params)
	if err != nil {
		return nil, fmt.Errorf("fetch info for %s: %w", symbol, err)
	}

	var resp stockDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode info for %s: %w", symbol, err)
	}
	if resp.Data.Name == "" {
		return nil, fmt.Errorf("no stock info found for symbol %s", symbol)
	}

	return &StockInfoData{
		Symbol:   symbol,
		Name:     resp.Data.Name,
		Market:   MarketFromSymbol(symbol),
		Sector:   resp.Data.Concept,
		Industry: resp.Data.Industry,
	}, nil
}

// FetchQuotesBatch fetches realtime quotes for all symbols in one
// provider call. Symbols absent from the response are omitted from the
// result; partial results are not an error.
func (df *DataFetcher) FetchQuotesBatch(symbols []string) (map[string]QuoteData, error) {
	if len(symbols) == 0 {
		return map[string]QuoteData{}, nil
	}

	secids := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		secids = append(secids, secID(symbol))
	}

	params := url.Values{}
	params.Set("secids", strings.Join(secids, ","))
	params.Set("invt", "2")
	params.Set("fltt", "2")
	params.Set("fields", "f2,f5,f6,f12,f14,f15,f16,f17,f18")

	body, err := df.get(quoteListURL, params)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	var resp quoteListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}

	now := time.Now()
	quotes := make(map[string]QuoteData, len(resp.Data.Diff))
	for _, row := range resp.Data.Diff {
		if row.Code == "" || row.Price == 0 {
			continue
		}
		current := float64(row.Price)
		prevClose := float64(row.PrevClose)
		changeAmount := current - prevClose
		changePercent := 0.0
		if prevClose != 0 {
			changePercent = changeAmount / prevClose * 100
		}
		quotes[row.Code] = QuoteData{
			Symbol:        row.Code,
			Name:          row.Name,
			CurrentPrice:  current,
			OpenPrice:     float64(row.Open),
			HighPrice:     float64(row.High),
			LowPrice:      float64(row.Low),
			ClosePrice:    prevClose,
			Volume:        int64(row.Volume),
			Amount:        float64(row.Amount),
			ChangeAmount:  changeAmount,
			ChangePercent: changePercent,
			Timestamp:     now,
		}
	}

	return quotes, nil
}

// SearchStocks searches A-share symbols by keyword (code or name).
func (df *DataFetcher) SearchStocks(keyword string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("input", keyword)
	params.Set("type", "14")
	params.Set("count", "10")

	body, err := df.get(suggestURL, params)
	if err != nil {
		return nil, fmt.Errorf("search stocks %q: %w", keyword, err)
	}

	var resp suggestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}

	results := make([]SearchResult, 0, len(resp.QuotationCodeTable.Data))
	for _, row := range resp.QuotationCodeTable.Data {
		results = append(results, SearchResult{Symbol: row.Code, Name: row.Name})
	}
	return results, nil
}

// CheckConnection verifies the provider is reachable.
func (df *DataFetcher) CheckConnection() bool {
	_, err := df.FetchQuotesBatch([]string{"000001"})
	return err == nil
}

func (df *DataFetcher) get(endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := df.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// MarketFromSymbol determines the exchange from the symbol prefix.
func MarketFromSymbol(symbol string) string {
	switch {
	case strings.HasPrefix(symbol, "60"), strings.HasPrefix(symbol, "68"), strings.HasPrefix(symbol, "9"):
		return "SH"
	case strings.HasPrefix(symbol, "00"), strings.HasPrefix(symbol, "30"), strings.HasPrefix(symbol, "2"):
		return "SZ"
	default:
		return "Unknown"
	}
}

// secID converts a plain symbol to Eastmoney's market-prefixed id.
func secID(symbol string) string {
	if MarketFromSymbol(symbol) == "SH" {
		return "1." + symbol
	}
	return "0." + symbol
}
