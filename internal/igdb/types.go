//nolint:tagliatelle // IGDB uses snake_case.
package igdb

// Fields requested for a game lookup. The normalizer depends on exactly
// these expansions.
var gameFields = []string{
	"name",
	"cover.image_id",
	"platforms.abbreviation",
	"involved_companies.company.name",
	"involved_companies.developer",
	"involved_companies.publisher",
	"release_dates.date",
	"release_dates.region",
	"release_dates.platform",
}

// Game is a raw game record from the IGDB /games endpoint.
// Pointer fields distinguish "absent" from zero values.
type Game struct {
	ID                int               `json:"id"`
	Name              *string           `json:"name"`
	Cover             *Cover            `json:"cover"`
	Platforms         []Platform        `json:"platforms"`
	InvolvedCompanies []InvolvedCompany `json:"involved_companies"`
	ReleaseDates      []ReleaseDate     `json:"release_dates"`
}

// Cover is the expanded cover art reference of a game.
type Cover struct {
	ID      int     `json:"id"`
	ImageID *string `json:"image_id"`
}

// Platform is an expanded platform entry. Abbreviation is missing for
// some platforms.
type Platform struct {
	ID           int     `json:"id"`
	Abbreviation *string `json:"abbreviation"`
}

// InvolvedCompany links a company to a game along with its role.
type InvolvedCompany struct {
	ID        int      `json:"id"`
	Company   *Company `json:"company"`
	Developer *bool    `json:"developer"`
	Publisher *bool    `json:"publisher"`
}

// Company is an expanded company entry.
type Company struct {
	ID   int     `json:"id"`
	Name *string `json:"name"`
}

// ReleaseDate is a single release of a game on a platform in a region.
type ReleaseDate struct {
	ID       int    `json:"id"`
	Date     *int64 `json:"date"` // Unix seconds
	Region   *int   `json:"region"`
	Platform *int   `json:"platform"`
}

// apiError is an error body returned by IGDB.
type apiError struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Cause  string `json:"cause"`
}
