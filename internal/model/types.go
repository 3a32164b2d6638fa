package model

import "time"

// Role is the access level attached to a user profile
type Role string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// AgentStatus represents agent provisioning status
type AgentStatus string

const (
	AgentStatusConfiguring AgentStatus = "configuring"
	AgentStatusTraining    AgentStatus = "training"
	AgentStatusReady       AgentStatus = "ready"
	AgentStatusError       AgentStatus = "error"
	AgentStatusConnected   AgentStatus = "connected"
)

// Severity is the notification severity level
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Post is a blog post record
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content"`
	CoverURL    string    `json:"coverUrl"`
	Category    string    `json:"category"`
	ReadTime    int       `json:"readTime"`
	Views       int64     `json:"views"`
	PublishedAt time.Time `json:"publishedAt"`
	CreatedBy   *string   `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CaseMetric is a single labelled metric on a case study.
// Order within the metrics list is significant.
type CaseMetric struct {
	Label string `json:"label"`
	Desc  string `json:"desc"`
}

// Case is a case-study record
type Case struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Excerpt     string       `json:"excerpt"`
	HeroImage   string       `json:"heroImage"`
	OwnerName   string       `json:"ownerName"`
	OwnerPhoto  string       `json:"ownerPhoto"`
	Metrics     []CaseMetric `json:"metrics"`
	ContentMD   string       `json:"contentMd"`
	Views       int64        `json:"views"`
	PublishedAt time.Time    `json:"publishedAt"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// UserProfile is the session-derived view of a user
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Role      Role   `json:"role"`
}

// ApiKey is the non-secret projection of an API key.
// The plaintext token is returned exactly once at creation and is
// never part of this struct.
type ApiKey struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
	Active    bool      `json:"active"`
}

// MediaFile is derived entirely from a storage listing
type MediaFile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Type      string    `json:"type"`
	Size      int64     `json:"size"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// DashboardStats is the aggregate read over posts and cases.
// TotalViews is a sum computed at fetch time, not a stored aggregate.
type DashboardStats struct {
	TotalPosts   int64  `json:"totalPosts"`
	TotalCases   int64  `json:"totalCases"`
	TotalViews   int64  `json:"totalViews"`
	PopularPosts []Post `json:"popularPosts"`
	PopularCases []Case `json:"popularCases"`
}

// DialogStep is one scripted step of an agent's dialog flow.
// IDs are locally unique within a wizard session and never reused.
type DialogStep struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Integrations holds the wizard's integration preferences
type Integrations struct {
	CRM       string `json:"crm"`
	Payment   bool   `json:"payment"`
	Analytics bool   `json:"analytics"`
	APIAccess bool   `json:"apiAccess"`
}

// CustomSchedule is an explicit weekly availability window
type CustomSchedule struct {
	Weekdays  []int `json:"weekdays"`
	StartHour int   `json:"startHour"`
	EndHour   int   `json:"endHour"`
}

// Deployment holds the wizard's deployment preferences
type Deployment struct {
	Schedule       string         `json:"schedule"`
	Notifications  bool           `json:"notifications"`
	Handoff        string         `json:"handoff"`
	CustomSchedule CustomSchedule `json:"customSchedule"`
}

// AgentMetadata is the metadata blob stored alongside an agent
type AgentMetadata struct {
	Integrations  Integrations `json:"integrations"`
	Deployment    Deployment   `json:"deployment"`
	ChatDemoToken string       `json:"chatDemoToken,omitempty"`
}

// Agent is a configured WhatsApp assistant produced by the wizard
type Agent struct {
	ID             string         `json:"id"`
	UserID         *string        `json:"userId,omitempty"`
	CompanyName    string         `json:"companyName"`
	BotName        string         `json:"botName"`
	Tone           string         `json:"tone"`
	NoAnswerPhrase string         `json:"noAnswerPhrase"`
	Goal           string         `json:"goal"`
	DialogFlow     []DialogStep   `json:"dialogFlow"`
	IGURL          string         `json:"igUrl"`
	WebsiteURL     string         `json:"websiteUrl"`
	DocsPaths      []string       `json:"docsPaths"`
	Status         AgentStatus    `json:"status"`
	WhatsAppQR     *string        `json:"whatsappQr,omitempty"`
	Metadata       *AgentMetadata `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	ConnectedAt    *time.Time     `json:"connectedAt,omitempty"`
}
