package core

// CategoryTotal is the summed quantity sold for one crop.
type CategoryTotal struct {
	Crop       string  `json:"Crop"`
	TotalSales float64 `json:"TotalSales"`
}

// BestWorst holds the highest and lowest selling crops.
type BestWorst struct {
	Best  []CategoryTotal `json:"best_sellers"`
	Worst []CategoryTotal `json:"worst_sellers"`
}

// HistoricalPoint is an observed value used as charting context.
type HistoricalPoint struct {
	Date   Date    `json:"Date"`
	Actual float64 `json:"Actual"`
}

// ForecastPoint is a projected value for a future date.
type ForecastPoint struct {
	Date     Date    `json:"Date"`
	Forecast float64 `json:"Forecast"`
}

// ForecastResult is the outcome of a forecast for one crop.
type ForecastResult struct {
	Crop       string            `json:"crop"`
	Historical []HistoricalPoint `json:"historical"`
	Forecast   []ForecastPoint   `json:"forecast"`
}

// ForecastRequest names the crop to forecast and the horizon in days.
type ForecastRequest struct {
	Crop    string
	Periods int
}
