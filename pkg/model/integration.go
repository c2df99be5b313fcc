package model

// ZohoConfig holds credentials and metadata for one helpdesk gateway
// connection. Configs are added and deleted by the operator; there is
// no in-place edit path.
type ZohoConfig struct {
	ID            string `json:"id,omitempty"`
	ConfigName    string `json:"configName"`
	OrgID         string `json:"orgId"`
	ClientID      string `json:"clientId"`
	ClientSecret  string `json:"clientSecret"`
	RefreshToken  string `json:"refreshToken"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
	IsActive      bool   `json:"isActive"`
}

// GitLabConfig holds credentials and metadata for one source-control
// cluster connection.
type GitLabConfig struct {
	ID            string `json:"id,omitempty"`
	ConfigName    string `json:"configName"`
	GitLabURL     string `json:"gitlabUrl"`
	PersonalToken string `json:"personalToken"`
	Username      string `json:"username"`
	DefaultBranch string `json:"defaultBranch"`
	IsActive      bool   `json:"isActive"`
}
