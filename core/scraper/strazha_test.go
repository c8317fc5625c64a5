package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Malowking/parlrag/core/common"
	"github.com/Malowking/parlrag/core/config"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions/2024-09-04/index.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"parlSession":{"title":"Пленарно заседание","date":"2024-09-04"},"statementCount":7,"personCount":3}`))
	})
	mux.HandleFunc("/sessions/2024-09-04/steno/0.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sessionStatements":[
			{"position":"Председател","title":"Рая Назарян","paragraphs":["Откривам заседанието."]},
			{"title":"A","paragraphs":["Hello world"]}]}`))
	})
	mux.HandleFunc("/sessions/2024-09-04/steno/1.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/sessions/2024-09-10/index.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"parlSession":{"title":"Пленарно заседание","date":"2024-09-10"},"statementCount":-3,"personCount":0}`))
	})
	return httptest.NewServer(mux)
}

func TestScrapeRange(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	out := t.TempDir()

	s := NewScraper(config.ScraperConfig{BaseURL: srv.URL + "/sessions/", OutputDir: out, BatchSize: 5})
	from := time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 9, 5, 0, 0, 0, 0, time.UTC)

	written, err := s.ScrapeRange(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(out, "2024-09-04.json")}, written)

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Рая Назарян")
	assert.Contains(t, string(data), "\n    ")

	var session common.SessionFile
	require.NoError(t, sonic.Unmarshal(data, &session))
	assert.Equal(t, 7, session.StatementCount)
	assert.Equal(t, 3, session.PersonCount)
	assert.Equal(t, "2024-09-04", session.ParlSession.Date)
	require.Len(t, session.SessionStatements, 2)
	assert.Equal(t, "A", session.SessionStatements[1].Title)
}

func TestScrapeRange_InvalidRange(t *testing.T) {
	s := NewScraper(config.ScraperConfig{BaseURL: "http://localhost", OutputDir: t.TempDir()})
	_, err := s.ScrapeRange(context.Background(), time.Now(), time.Now().AddDate(0, 0, -1))
	assert.Error(t, err)
}

func TestScrapeDate_NegativeStatementCount(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	out := t.TempDir()

	s := NewScraper(config.ScraperConfig{BaseURL: srv.URL + "/sessions/", OutputDir: out, BatchSize: 5})
	var path string
	require.NotPanics(t, func() {
		var err error
		path, err = s.ScrapeDate(context.Background(), time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	})
	require.Equal(t, filepath.Join(out, "2024-09-10.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var session common.SessionFile
	require.NoError(t, sonic.Unmarshal(data, &session))
	assert.Empty(t, session.SessionStatements)
	assert.Equal(t, "2024-09-10", session.ParlSession.Date)
}
