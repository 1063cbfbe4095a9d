package dto

type IssueDownloadRequest struct {
	AgentID  string `json:"agentId" binding:"required"`
	Path     string `json:"path" binding:"required"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

type IssueDownloadResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type PushRegisterRequest struct {
	Token string `json:"token" binding:"required"`
}

type PushListResponse struct {
	Tokens []string `json:"tokens"`
}
