package api

// User is the authenticated user profile returned by the backend.
type User struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// GPSLocation is a field coordinate attached to an advisory request.
type GPSLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// FarmerInput is the advisory request payload. Field names mirror the
// backend schema exactly.
type FarmerInput struct {
	Name           string       `json:"name"`
	PhoneNumber    string       `json:"phone_number"`
	Crop           string       `json:"crop"`
	CropStage      string       `json:"crop_stage"`
	SoilType       string       `json:"soil_type"`
	Language       string       `json:"language"`
	GPSLocation    *GPSLocation `json:"gps_location,omitempty"`
	EnableSMS      bool         `json:"enable_sms"`
	EnableWhatsApp bool         `json:"enable_whatsapp"`
	EnableVoice    bool         `json:"enable_voice"`
}

// Weather is the current-conditions block of an advisory.
type Weather struct {
	Temp        float64 `json:"temp"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	Humidity    int     `json:"humidity"`
}

// ForecastDay is one day of the weather forecast. Dates arrive as bare
// ISO dates ("2025-06-01"), so they stay strings on the wire.
type ForecastDay struct {
	Date        string  `json:"date"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// PestPrediction carries one pest and its risk level (Low, Medium, High).
type PestPrediction struct {
	Pest string `json:"pest"`
	Risk string `json:"risk"`
}

// GovtScheme is a government support scheme relevant to the farmer.
type GovtScheme struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// CropHealth is the satellite-derived crop health block (optional).
type CropHealth struct {
	Status  string  `json:"status"`
	NDVI    float64 `json:"ndvi"`
	Message string  `json:"message"`
}

// WaterInfo is the water availability and irrigation block (optional).
type WaterInfo struct {
	Availability   string `json:"availability"`
	Requirement    string `json:"requirement"`
	Recommendation string `json:"recommendation"`
}

// Advisory is the structured advisory bundle computed by the backend for
// one submission. Optional sections are pointers; absent means the backend
// could not compute them.
type Advisory struct {
	DailyAdvice        string           `json:"daily_advice"`
	CurrentWeather     *Weather         `json:"current_weather,omitempty"`
	Forecast           []ForecastDay    `json:"forecast"`
	PestPredictions    []PestPrediction `json:"pest_predictions"`
	Recommendation     string           `json:"recommendation"`
	GovtSchemes        []GovtScheme     `json:"govt_schemes"`
	SoilRecommendation string           `json:"soil_recommendation,omitempty"`
	WaterInfo          *WaterInfo       `json:"water_info,omitempty"`
	CropHealth         *CropHealth      `json:"crop_health,omitempty"`
}

// advisoryResponse is the envelope around a created advisory.
type advisoryResponse struct {
	Status   string   `json:"status"`
	Advisory Advisory `json:"advisory"`
}

// HistoryItem is one entry of the user's advisory history, in the order
// the server returned it.
type HistoryItem struct {
	Crop         string `json:"crop"`
	DateSent     string `json:"date_sent"`
	AdvisoryText string `json:"advisory_text"`
}

// PricePoint is one dated market price observation.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// MarketPrice is the market price series for a crop.
type MarketPrice struct {
	Crop    string       `json:"crop"`
	Unit    string       `json:"unit"`
	History []PricePoint `json:"history"`
}

// CropInfo describes one crop's ordered growth stages.
type CropInfo struct {
	Stages []string `json:"stages"`
}

// AppConfig is the crop/soil taxonomy used to populate and validate the
// advisory form.
type AppConfig struct {
	Crops     map[string]CropInfo `json:"crops"`
	SoilTypes []string            `json:"soil_types"`
}

// messageResponse is the generic {"msg": "..."} body returned by the
// password recovery endpoints.
type messageResponse struct {
	Msg string `json:"msg"`
}
