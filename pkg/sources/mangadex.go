package sources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kerbaras/otakulog/pkg/utils"
)

type mangaDexManga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title       map[string]string   `json:"title"`
		AltTitles   []map[string]string `json:"altTitles"`
		LastVolume  string              `json:"lastVolume"`
		LastChapter string              `json:"lastChapter"`
		Status      string              `json:"status"`
	} `json:"attributes"`
}

type mangaDexSearchResponse struct {
	Result string          `json:"result"`
	Data   []mangaDexManga `json:"data"`
}

type mangaDexAggregateResponse struct {
	Result  string `json:"result"`
	Volumes map[string]struct {
		Volume   string `json:"volume"`
		Count    int    `json:"count"`
		Chapters map[string]struct {
			Chapter string `json:"chapter"`
			ID      string `json:"id"`
		} `json:"chapters"`
	} `json:"volumes"`
}

// MangaDex is the search+aggregate catalog client.
type MangaDex struct {
	api *utils.API
}

func NewMangaDex() *MangaDex {
	return &MangaDex{api: utils.NewAPI("https://api.mangadex.org")}
}

// NewMangaDexWithBaseURL points the client at a different host, mainly for tests.
func NewMangaDexWithBaseURL(baseURL string) *MangaDex {
	return &MangaDex{api: utils.NewAPI(baseURL)}
}

// SearchManga searches the catalog by title and returns the hits in the
// catalog's own ranking order.
func (m *MangaDex) SearchManga(ctx context.Context, title string) ([]Candidate, error) {
	var resp mangaDexSearchResponse
	params := url.Values{"title": {title}}
	if err := m.api.Get(ctx, "/manga", params, &resp); err != nil {
		return nil, classify(err)
	}
	if resp.Result != "ok" {
		return nil, fmt.Errorf("search %q: result %q", title, resp.Result)
	}

	out := make([]Candidate, len(resp.Data))
	for i, manga := range resp.Data {
		c := Candidate{
			ID:          manga.ID,
			Title:       manga.Attributes.Title["en"],
			Status:      manga.Attributes.Status,
			LastVolume:  manga.Attributes.LastVolume,
			LastChapter: manga.Attributes.LastChapter,
		}
		for _, alt := range manga.Attributes.AltTitles {
			if ja, ok := alt["ja"]; ok {
				c.NativeAltTitles = append(c.NativeAltTitles, ja)
			}
		}
		out[i] = c
	}
	return out, nil
}

// FetchVolumeAggregate returns the per-volume chapter breakdown for a record.
func (m *MangaDex) FetchVolumeAggregate(ctx context.Context, catalogID string) (VolumeAggregate, error) {
	var resp mangaDexAggregateResponse
	if err := m.api.Get(ctx, fmt.Sprintf("/manga/%s/aggregate", catalogID), nil, &resp); err != nil {
		return nil, classify(err)
	}
	if resp.Result != "ok" {
		return nil, fmt.Errorf("aggregate %s: result %q", catalogID, resp.Result)
	}

	agg := make(VolumeAggregate, len(resp.Volumes))
	for key, vol := range resp.Volumes {
		bucket := VolumeBucket{ChapterCount: vol.Count}
		for chapterKey := range vol.Chapters {
			bucket.ChapterKeys = append(bucket.ChapterKeys, chapterKey)
		}
		agg[key] = bucket
	}
	return agg, nil
}
