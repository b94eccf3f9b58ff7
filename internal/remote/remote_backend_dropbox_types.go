package remote

type dropboxListFolderRequest struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
	Limit     int    `json:"limit,omitempty"`
}

type dropboxCursorRequest struct {
	Cursor string `json:"cursor"`
}

type dropboxListFolderResponse struct {
	Entries []*dropboxEntry `json:"entries"`
	Cursor  string          `json:"cursor"`
	HasMore bool            `json:"has_more"`
}

type dropboxEntry struct {
	Tag         string `json:".tag"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	PathDisplay string `json:"path_display"`
	PathLower   string `json:"path_lower"`
	ContentHash string `json:"content_hash"`
	Size        int64  `json:"size"`
}

type dropboxPathArg struct {
	Path string `json:"path"`
}

type dropboxSharedLinksRequest struct {
	Path       string `json:"path"`
	DirectOnly bool   `json:"direct_only"`
}

type dropboxSharedLinksResponse struct {
	Links []*dropboxSharedLink `json:"links"`
}

type dropboxSharedLink struct {
	Tag       string `json:".tag"`
	URL       string `json:"url"`
	Name      string `json:"name"`
	PathLower string `json:"path_lower"`
}

type dropboxTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
