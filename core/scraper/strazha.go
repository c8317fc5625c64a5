// Package scraper 从 data.strazha.bg 抓取国会速记并保存为会议 JSON 文件
package scraper

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Malowking/parlrag/core/common"
	"github.com/Malowking/parlrag/core/config"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/os/gfile"
)

const dateLayout = "2006-01-02"

type stenoBatch struct {
	SessionStatements []*common.SessionStatement `json:"sessionStatements"`
}

// Scraper 速记抓取器
type Scraper struct {
	http      *resty.Client
	outputDir string
	batchSize int
}

func NewScraper(conf config.ScraperConfig) *Scraper {
	batchSize := conf.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Scraper{
		http: resty.New().
			SetBaseURL(conf.BaseURL).
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
		outputDir: conf.OutputDir,
		batchSize: batchSize,
	}
}

// ScrapeRange 逐日抓取 [from, to]，没有会议或抓取失败的日期被跳过
func (s *Scraper) ScrapeRange(ctx context.Context, from, to time.Time) ([]string, error) {
	if to.Before(from) {
		return nil, errors.Newf(errors.ErrInvalidParameter, "invalid date range: %s > %s", from.Format(dateLayout), to.Format(dateLayout))
	}

	var written []string
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path, err := s.ScrapeDate(ctx, day)
		if err != nil {
			g.Log().Warningf(ctx, "Skipping %s: %v", day.Format(dateLayout), err)
			continue
		}
		written = append(written, path)
	}
	return written, nil
}

// ScrapeDate 抓取索引和全部速记分片，写入 <outputDir>/<date>.json
func (s *Scraper) ScrapeDate(ctx context.Context, day time.Time) (string, error) {
	date := day.Format(dateLayout)

	var index common.SessionFile
	if err := s.getJSON(ctx, date+"/index.json", &index); err != nil {
		return "", errors.Wrapf(err, errors.ErrScrapeFailed, "failed to fetch index for %s", date)
	}

	// 上游计数不可信，负数按 0 处理
	count := max(index.StatementCount, 0)
	batches := (count + s.batchSize - 1) / s.batchSize
	statements := make([]*common.SessionStatement, 0, count)
	for i := 0; i < batches; i++ {
		var batch stenoBatch
		if err := s.getJSON(ctx, fmt.Sprintf("%s/steno/%d.json", date, i), &batch); err != nil {
			g.Log().Warningf(ctx, "Error fetching steno data for %s, batch %d: %v", date, i, err)
			continue
		}
		statements = append(statements, batch.SessionStatements...)
	}

	out := &common.SessionFile{
		ParlSession:       index.ParlSession,
		StatementCount:    index.StatementCount,
		PersonCount:       index.PersonCount,
		SessionStatements: statements,
	}
	data, err := sonic.MarshalIndent(out, "", "    ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrScrapeFailed, "failed to encode session")
	}

	path := filepath.Join(s.outputDir, date+".json")
	if err := gfile.PutBytes(path, data); err != nil {
		return "", errors.Wrapf(err, errors.ErrScrapeFailed, "failed to write %s", path)
	}
	g.Log().Infof(ctx, "Saved %d session statements for %s to %s", len(statements), date, path)
	return path, nil
}

func (s *Scraper) getJSON(ctx context.Context, path string, out any) error {
	resp, err := s.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode())
	}
	return sonic.Unmarshal(resp.Body(), out)
}
