package model

// UserProfile is the operator's account profile, a read/write
// singleton per session.
type UserProfile struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	FullName   string `json:"fullName"`
	Company    string `json:"company,omitempty"`
	Department string `json:"department,omitempty"`
	Phone      string `json:"phone,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	Language   string `json:"language,omitempty"`
	Role       string `json:"role"`
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

// AppHealth is the read-only aggregate snapshot returned by the
// admin health endpoint.
type AppHealth struct {
	Status                  string `json:"status"`
	TotalTickets            int    `json:"totalTickets"`
	Pending                 int    `json:"pending"`
	Processing              int    `json:"processing"`
	Analyzing               int    `json:"analyzing"`
	Fixing                  int    `json:"fixing"`
	Completed               int    `json:"completed"`
	Failed                  int    `json:"failed"`
	AverageProcessingTimeMs int64  `json:"averageProcessingTimeMs"`
	ActiveAgents            int    `json:"activeAgents"`
}

// DegradedHealth is the placeholder snapshot shown when the health
// endpoint is unreachable.
func DegradedHealth() AppHealth {
	return AppHealth{Status: "DOWN"}
}
