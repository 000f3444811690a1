package models

// AdvisoryResult is the scored advisory for one country.
type AdvisoryResult struct {
	CountryCode string   `json:"countryCode"`
	CountryName string   `json:"countryName"`
	Score       float64  `json:"score"`
	Message     string   `json:"message"`
	Updated     string   `json:"updated"`
	Details     *Details `json:"details,omitempty"`
}

// Details records where an advisory came from.
type Details struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

// IPInfo is the geolocation of a client address.
type IPInfo struct {
	IP          string  `json:"ip"`
	City        string  `json:"city,omitempty"`
	Region      string  `json:"region,omitempty"`
	CountryName string  `json:"country_name,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Org         string  `json:"org,omitempty"`
}

// CombinedPayload is what the dashboard renders in one go.
type CombinedPayload struct {
	IPInfo    *IPInfo        `json:"ipInfo"`
	Advisory  AdvisoryResult `json:"advisory"`
	RiskLevel string         `json:"riskLevel"`
}
