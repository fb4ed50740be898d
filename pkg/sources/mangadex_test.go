package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMangaDex_SearchManga(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga", r.URL.Path)
		assert.Equal(t, "鬼滅の刃", r.URL.Query().Get("title"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"result": "ok",
			"data": [
				{
					"id": "d86cf65b",
					"attributes": {
						"title": {"en": "Demon Slayer: Kimetsu no Yaiba"},
						"altTitles": [{"ja": "鬼滅の刃"}, {"ko": "귀멸의 칼날"}],
						"lastVolume": "23",
						"lastChapter": "205.5",
						"status": "completed"
					}
				}
			]
		}`))
	}))
	defer server.Close()

	md := NewMangaDexWithBaseURL(server.URL)
	candidates, err := md.SearchManga(context.Background(), "鬼滅の刃")
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, "d86cf65b", c.ID)
	assert.Equal(t, "Demon Slayer: Kimetsu no Yaiba", c.Title)
	assert.Equal(t, []string{"鬼滅の刃"}, c.NativeAltTitles)
	assert.Equal(t, "completed", c.Status)
	assert.Equal(t, "23", c.LastVolume)
	assert.Equal(t, "205.5", c.LastChapter)
}

func TestMangaDex_SearchMangaBadResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": "error", "data": []}`))
	}))
	defer server.Close()

	md := NewMangaDexWithBaseURL(server.URL)
	_, err := md.SearchManga(context.Background(), "whatever")
	require.Error(t, err)
	assert.False(t, Transient(err))
}

func TestMangaDex_FetchVolumeAggregate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga/d86cf65b/aggregate", r.URL.Path)
		w.Write([]byte(`{
			"result": "ok",
			"volumes": {
				"1": {"volume": "1", "count": 7, "chapters": {"1": {"chapter": "1", "id": "a"}}},
				"none": {"volume": "none", "count": 2, "chapters": {"10.5": {"chapter": "10.5", "id": "b"}, "11": {"chapter": "11", "id": "c"}}}
			}
		}`))
	}))
	defer server.Close()

	md := NewMangaDexWithBaseURL(server.URL)
	agg, err := md.FetchVolumeAggregate(context.Background(), "d86cf65b")
	require.NoError(t, err)
	require.Len(t, agg, 2)
	assert.Equal(t, 7, agg["1"].ChapterCount)
	assert.ElementsMatch(t, []string{"10.5", "11"}, agg["none"].ChapterKeys)
}

func TestMangaDex_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	md := NewMangaDexWithBaseURL(server.URL)
	_, err := md.SearchManga(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, Transient(err))
}
