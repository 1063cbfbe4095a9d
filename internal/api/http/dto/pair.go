package dto

type PairRequest struct {
	ClientPublicKeyB64 string `json:"clientPublicKeyB64" binding:"required"`
	ClientName         string `json:"clientName"`
	TOTPCode           string `json:"totpCode"`
}

type PairResponse struct {
	// SealedB64 is the bearer token sealed to the client's ephemeral
	// public key with the daemon's pairing key.
	SealedB64 string `json:"sealedB64"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
