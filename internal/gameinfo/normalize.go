package gameinfo

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ethpandaops/overlay-backend/internal/igdb"
)

const coverURLTemplate = "https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg"

var (
	// ErrMalformedRecord is returned when a required field is missing.
	ErrMalformedRecord = errors.New("malformed game record")
	// ErrUnknownRegion is returned for region codes outside the fixed table.
	ErrUnknownRegion = errors.New("unknown release region")
)

// regionLabels maps IGDB region codes to display labels.
var regionLabels = map[int]string{
	1: "EU",
	2: "NA",
	3: "AU",
	4: "NZ",
	5: "JP",
	6: "CN",
	7: "Asia",
	8: "World",
}

// RegionLabel returns the display label for an IGDB region code.
func RegionLabel(code int) (string, error) {
	label, ok := regionLabels[code]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownRegion, code)
	}

	return label, nil
}

// CoverURL builds the big cover image URL for an IGDB image id.
func CoverURL(imageID string) string {
	return fmt.Sprintf(coverURLTemplate, imageID)
}

// Normalize flattens the first game of an IGDB response into a Record.
// An empty response means no match and yields (nil, nil).
func Normalize(games []igdb.Game) (*Record, error) {
	if len(games) == 0 {
		return nil, nil
	}

	game := &games[0]

	if game.Name == nil {
		return nil, malformed("name")
	}

	if game.Cover == nil || game.Cover.ImageID == nil {
		return nil, malformed("cover.image_id")
	}

	developers, publishers, err := normalizeCompanies(game.InvolvedCompanies)
	if err != nil {
		return nil, err
	}

	releaseDates, err := normalizeReleaseDates(game.ReleaseDates)
	if err != nil {
		return nil, err
	}

	return &Record{
		Name:         *game.Name,
		CoverURL:     CoverURL(*game.Cover.ImageID),
		Platforms:    normalizePlatforms(game.Platforms),
		ReleaseDates: releaseDates,
		Developers:   developers,
		Publishers:   publishers,
	}, nil
}

func normalizePlatforms(platforms []igdb.Platform) []string {
	out := make([]string, 0, len(platforms))

	for _, p := range platforms {
		if p.Abbreviation == nil {
			continue
		}

		out = append(out, *p.Abbreviation)
	}

	slices.Sort(out)

	return out
}

func normalizeCompanies(companies []igdb.InvolvedCompany) (developers, publishers []string, err error) {
	developers = make([]string, 0, len(companies))
	publishers = make([]string, 0, len(companies))

	for i, ic := range companies {
		if ic.Company == nil || ic.Company.Name == nil {
			return nil, nil, malformed(fmt.Sprintf("involved_companies[%d].company.name", i))
		}

		if ic.Developer == nil {
			return nil, nil, malformed(fmt.Sprintf("involved_companies[%d].developer", i))
		}

		if ic.Publisher == nil {
			return nil, nil, malformed(fmt.Sprintf("involved_companies[%d].publisher", i))
		}

		if *ic.Developer {
			developers = append(developers, *ic.Company.Name)
		}

		if *ic.Publisher {
			publishers = append(publishers, *ic.Company.Name)
		}
	}

	return developers, publishers, nil
}

// normalizeReleaseDates keeps the earliest release per region, oldest first.
func normalizeReleaseDates(dates []igdb.ReleaseDate) ([]ReleaseDate, error) {
	for i, rd := range dates {
		if rd.Date == nil {
			return nil, malformed(fmt.Sprintf("release_dates[%d].date", i))
		}

		if rd.Region == nil {
			return nil, malformed(fmt.Sprintf("release_dates[%d].region", i))
		}
	}

	sorted := slices.Clone(dates)
	slices.SortStableFunc(sorted, func(a, b igdb.ReleaseDate) int {
		return cmp.Compare(*a.Date, *b.Date)
	})

	seen := make(map[int]struct{}, len(regionLabels))
	out := make([]ReleaseDate, 0, len(regionLabels))

	for _, rd := range sorted {
		if _, ok := seen[*rd.Region]; ok {
			continue
		}

		seen[*rd.Region] = struct{}{}

		label, err := RegionLabel(*rd.Region)
		if err != nil {
			return nil, err
		}

		out = append(out, ReleaseDate{
			Date:   time.Unix(*rd.Date, 0).UTC().Format("2006-01"),
			Region: label,
		})
	}

	return out, nil
}

func malformed(field string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformedRecord, field)
}
