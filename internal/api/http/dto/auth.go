package dto

type RefreshResponse struct {
	Token     string `json:"token"`
	Refreshed bool   `json:"refreshed"`
}

type TOTPSetupRequest struct {
	// Regenerate must be set to replace an existing secret; without it,
	// setup fails once a secret exists.
	Regenerate bool `json:"regenerate"`
}

type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}
