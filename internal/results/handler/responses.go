package handler

type healthResponse struct {
	Status          string   `json:"status"`
	SourceConnected bool     `json:"source_connected"`
	ActiveSource    string   `json:"active_source"`
	Sources         []string `json:"available_sources"`
	Error           string   `json:"error,omitempty"`
}

type sourceInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	IsActive    bool   `json:"is_active"`
}

type testSourceResponse struct {
	Source  string `json:"source"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type switchSourceResponse struct {
	Message      string `json:"message"`
	ActiveSource string `json:"active_source"`
}

type webAPIsResponse struct {
	WebAPIs []string `json:"web_apis"`
}

type regulationsResponse struct {
	Regulations []string `json:"regulations"`
}
