package weather

// Current is the /current.json response from weatherapi.com.
type Current struct {
	Location  Location   `json:"location"`
	Condition Conditions `json:"current"`
}

// Location identifies the resolved place for a weather query.
type Location struct {
	Name      string  `json:"name"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	TzID      string  `json:"tz_id"`
	Localtime string  `json:"localtime"`
}

// Conditions holds current observations.
type Conditions struct {
	LastUpdated string  `json:"last_updated"`
	TempC       float64 `json:"temp_c"`
	TempF       float64 `json:"temp_f"`
	IsDay       int     `json:"is_day"`
	Condition   Summary `json:"condition"`
	WindKph     float64 `json:"wind_kph"`
	WindDir     string  `json:"wind_dir"`
	PressureMb  float64 `json:"pressure_mb"`
	PrecipMm    float64 `json:"precip_mm"`
	Humidity    int     `json:"humidity"`
	Cloud       int     `json:"cloud"`
	FeelslikeC  float64 `json:"feelslike_c"`
	FeelslikeF  float64 `json:"feelslike_f"`
	VisKm       float64 `json:"vis_km"`
	UV          float64 `json:"uv"`
	GustKph     float64 `json:"gust_kph"`
}

// Summary is the textual condition description.
type Summary struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code int    `json:"code"`
}
