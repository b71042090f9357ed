package model

import "time"

// Portfolio themes.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Portfolio is one role-targeted portfolio site managed by the admin and
// published under its slug. The indexed attributes are columns; everything
// else lives in the embedded PortfolioContent, stored as a JSON document.
type Portfolio struct {
	ID        string `json:"id"`
	Slug      string `json:"slug" validate:"required,slug"`
	JobRole   string `json:"jobRole" validate:"required"`
	Theme     string `json:"theme" validate:"oneof=dark light"`
	IsEnabled bool   `json:"isEnabled"`

	PortfolioContent

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PortfolioContent holds the rendered sections of a portfolio. Their fields
// are stored as given; only the top-level attributes are validated.
type PortfolioContent struct {
	Hero         Hero          `json:"hero"`
	Skills       []SkillGroup  `json:"skills"`
	Projects     []Project     `json:"projects"`
	Experience   []Experience  `json:"experience"`
	Education    []Education   `json:"education"`
	Certificates []Certificate `json:"certificates"`
	Contact      Contact       `json:"contact"`
	Resume       *Resume       `json:"resume,omitempty"`
}

type Hero struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle,omitempty"`
	Description  string `json:"description,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
	CTAText      string `json:"ctaText,omitempty"`
	CTALink      string `json:"ctaLink,omitempty"`
}

type SkillGroup struct {
	Category string  `json:"category"`
	Items    []Skill `json:"items"`
}

type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

type Project struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Image        string   `json:"image,omitempty"`
	LiveURL      string   `json:"liveUrl,omitempty"`
	GithubURL    string   `json:"githubUrl,omitempty"`
	Featured     bool     `json:"featured"`
	Order        int      `json:"order"`
}

type Experience struct {
	Company          string     `json:"company"`
	Position         string     `json:"position"`
	Duration         string     `json:"duration"`
	Location         string     `json:"location,omitempty"`
	Description      string     `json:"description,omitempty"`
	Responsibilities []string   `json:"responsibilities,omitempty"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	Current          bool       `json:"current"`
}

type Education struct {
	Institution string     `json:"institution"`
	Degree      string     `json:"degree"`
	Field       string     `json:"field,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	Location    string     `json:"location,omitempty"`
	Grade       string     `json:"grade,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

type Certificate struct {
	Title  string `json:"title"`
	Issuer string `json:"issuer"`
	Date   string `json:"date,omitempty"`
	URL    string `json:"url,omitempty"`
	Image  string `json:"image,omitempty"`
}

type Contact struct {
	Email   string  `json:"email"`
	Phone   string  `json:"phone,omitempty"`
	Address Address `json:"address"`
	Social  Social  `json:"social"`
}

type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

type Social struct {
	LinkedIn string `json:"linkedin,omitempty"`
	Github   string `json:"github,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Resume points at an uploaded CV on the media host.
type Resume struct {
	URL        string     `json:"url"`
	PublicID   string     `json:"publicId,omitempty"`
	Filename   string     `json:"filename,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

// NewPortfolio returns a portfolio carrying the defaults applied before a
// create request is decoded onto it.
func NewPortfolio() *Portfolio {
	return &Portfolio{
		Theme:     ThemeDark,
		IsEnabled: true,
	}
}
