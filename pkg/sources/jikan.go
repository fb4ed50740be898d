package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/kerbaras/otakulog/pkg/data"
	"github.com/kerbaras/otakulog/pkg/utils"
)

type jikanEpisode struct {
	MalID         int     `json:"mal_id"`
	Title         string  `json:"title"`
	TitleJapanese *string `json:"title_japanese"`
	TitleRomanji  *string `json:"title_romanji"`
	Aired         string  `json:"aired"`
}

type jikanEpisodesResponse struct {
	Data []jikanEpisode `json:"data"`
}

// Jikan fetches anime episode lists from the Jikan REST API.
type Jikan struct {
	api *utils.API
}

func NewJikan() *Jikan {
	return &Jikan{api: utils.NewAPI("https://api.jikan.moe/v4")}
}

// NewJikanWithBaseURL points the client at a different host, mainly for tests.
func NewJikanWithBaseURL(baseURL string) *Jikan {
	return &Jikan{api: utils.NewAPI(baseURL)}
}

// FetchEpisodes returns the ordered episode list for an anime.
func (j *Jikan) FetchEpisodes(ctx context.Context, externalID int64) ([]data.Episode, error) {
	var resp jikanEpisodesResponse
	if err := j.api.Get(ctx, fmt.Sprintf("/anime/%d/episodes", externalID), nil, &resp); err != nil {
		return nil, classify(err)
	}

	episodes := make([]data.Episode, len(resp.Data))
	for i, ep := range resp.Data {
		episodes[i] = data.Episode{
			Number: ep.MalID,
			Title:  ep.Title,
			Aired:  formatAired(ep.Aired),
		}
		if ep.TitleJapanese != nil {
			episodes[i].TitleNative = *ep.TitleJapanese
		}
		if ep.TitleRomanji != nil {
			episodes[i].TitleRomaji = *ep.TitleRomanji
		}
	}
	return episodes, nil
}

// formatAired renders the aired timestamp as a short US date ("Apr 7, 2004"),
// or "N/A" when the catalog has no date.
func formatAired(raw string) string {
	if raw == "" {
		return "N/A"
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "N/A"
	}
	return t.Format("Jan 2, 2006")
}
