package dto

type RootResponse struct {
	Message     string `json:"message"`
	App         string `json:"app"`
	Environment string `json:"environment"`
	Status      string `json:"status"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Uptime      int64  `json:"uptime"`
	Database    string `json:"database"`
	Cache       string `json:"cache,omitempty"`
}
