package dedupe_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/owldoor/door-news/internal/dedupe"
	"github.com/owldoor/door-news/internal/models"
)

func TestByTitlePrefix(t *testing.T) {
	in := []models.Article{
		{Title: "현관문 교체 수요가 늘면서 관련 업계가 일제히 바빠졌다는 분석 (종합)", URL: "https://a.example.com/1"},
		{Title: "현관문 교체 수요가 늘면서 관련 업계가 일제히 바빠졌다는 분석 (2보)", URL: "https://b.example.com/2"},
		{Title: "선택된 언론사 안내", URL: "https://c.example.com/3"},
		{Title: "스마트도어락 해킹 피해 사례가 잇따르고 있어 주의가 필요하다", URL: "https://d.example.com/4"},
	}

	got := dedupe.ByTitlePrefix(in)

	require.Len(t, got, 2)
	require.Equal(t, "https://a.example.com/1", got[0].URL)
	require.Equal(t, "https://d.example.com/4", got[1].URL)
}

func TestByTitlePrefixRequiresMoreThanTwentyChars(t *testing.T) {
	exactly20 := "가나다라마바사아자차카타파하가나다라마바"
	require.Len(t, []rune(exactly20), 20)

	got := dedupe.ByTitlePrefix([]models.Article{
		{Title: exactly20, URL: "https://a.example.com"},
		{Title: exactly20 + "사", URL: "https://b.example.com"},
	})

	require.Len(t, got, 1)
	require.Equal(t, "https://b.example.com", got[0].URL)
}

func TestByURLKeepsFirstKeyword(t *testing.T) {
	in := []models.Article{
		{Title: "방화문 관리 부실 적발 사례가 소방 점검에서 다수 확인됐다", URL: "https://news.example.com/x", Keyword: "방화문"},
		{Title: "단열문 교체 지원 사업 신청이 다음 달부터 시작된다고 밝혔다", URL: "https://news.example.com/y", Keyword: "단열문"},
		{Title: "방화문 관리 부실 적발 사례가 소방 점검에서 다수 확인됐다", URL: "https://news.example.com/x", Keyword: "현관문"},
		{Title: "URL 없는 기사는 결과에 포함되지 않아야 한다는 점을 확인한다", URL: ""},
	}

	got := dedupe.ByURL(in)

	require.Len(t, got, 2)
	require.Equal(t, "방화문", got[0].Keyword)
	require.Equal(t, "https://news.example.com/y", got[1].URL)
}

func TestByURLIsIdempotent(t *testing.T) {
	in := []models.Article{
		{URL: "https://a.example.com"},
		{URL: "https://b.example.com"},
		{URL: "https://a.example.com"},
		{URL: "https://c.example.com"},
		{URL: "https://b.example.com"},
	}

	once := dedupe.ByURL(in)
	twice := dedupe.ByURL(once)

	require.Equal(t, once, twice)
	require.Len(t, once, 3)
}
