package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Malowking/parlrag/core/cache"
	"github.com/Malowking/parlrag/core/config"
	"github.com/Malowking/parlrag/core/indexer"
	"github.com/Malowking/parlrag/core/metrics"
	"github.com/Malowking/parlrag/core/scraper"
	"github.com/Malowking/parlrag/internal/controller/chat"
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/net/ghttp"
	"github.com/gogf/gf/v2/os/gcmd"
)

const dateLayout = "2006-01-02"

var (
	Main = gcmd.Command{
		Name:  "main",
		Usage: "main",
		Brief: "start http server",
		Func: func(ctx context.Context, parser *gcmd.Parser) (err error) {
			cfg, err := loadConfig(ctx)
			if err != nil {
				g.Log().Fatalf(ctx, "Configuration validation failed:\n%v", err)
			}
			store, err := initChat(ctx, cfg)
			if err != nil {
				g.Log().Fatalf(ctx, "Component initialization failed: %v", err)
			}
			defer func() {
				_ = store.Close(ctx)
				_ = cache.CloseRedis(ctx)
			}()

			s := g.Server()
			bindRoutes(s, chat.NewV1())
			s.Run()
			return nil
		},
	}

	Ingest = gcmd.Command{
		Name:  "ingest",
		Usage: "ingest [-s SOURCE] [-c COLLECTION]",
		Brief: "ingest transcript files into the vector index",
		Arguments: []gcmd.Argument{
			{Name: "source", Short: "s", Brief: "local directory or minio://bucket/prefix"},
			{Name: "collection", Short: "c", Brief: "target collection name"},
		},
		Func: func(ctx context.Context, parser *gcmd.Parser) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			if v := parser.GetOpt("collection"); v != nil && v.String() != "" {
				cfg.VectorStore.Collection = v.String()
			}
			location := parser.GetOpt("source", cfg.Ingest.Source).String()

			ing, store, err := newIngestor(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			src, err := indexer.NewSource(ctx, location, cfg.Ingest.Extensions, cfg.Minio)
			if err != nil {
				return err
			}
			report, err := ing.Ingest(ctx, src)
			if err != nil {
				return err
			}
			for file, ferr := range report.Failed {
				g.Log().Warningf(ctx, "skipped %s: %v", file, ferr)
			}
			fmt.Printf("Ingested %d chunks from %d files into %s (%d failed)\n",
				report.Chunks, len(report.Files), cfg.VectorStore.Collection, len(report.Failed))
			return nil
		},
	}

	Scrape = gcmd.Command{
		Name:  "scrape",
		Usage: "scrape -from YYYY-MM-DD [-to YYYY-MM-DD] [-o DIR]",
		Brief: "download session transcripts from strazha.bg",
		Arguments: []gcmd.Argument{
			{Name: "from", Brief: "first session date"},
			{Name: "to", Brief: "last session date, defaults to from"},
			{Name: "output", Short: "o", Brief: "output directory"},
		},
		Func: func(ctx context.Context, parser *gcmd.Parser) error {
			// 抓取不依赖模型和向量库，只读取配置不做校验
			cfg, err := config.Load(ctx, g.Cfg())
			if err != nil {
				return err
			}
			from, err := time.Parse(dateLayout, parser.GetOpt("from", "").String())
			if err != nil {
				return fmt.Errorf("invalid -from date: %w", err)
			}
			to := from
			if v := parser.GetOpt("to"); v != nil && v.String() != "" {
				if to, err = time.Parse(dateLayout, v.String()); err != nil {
					return fmt.Errorf("invalid -to date: %w", err)
				}
			}
			if v := parser.GetOpt("output"); v != nil && v.String() != "" {
				cfg.Scraper.OutputDir = v.String()
			}

			files, err := scraper.NewScraper(cfg.Scraper).ScrapeRange(ctx, from, to)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d session files to %s\n", len(files), cfg.Scraper.OutputDir)
			return nil
		},
	}
)

func init() {
	if err := Main.AddCommand(&Ingest, &Scrape); err != nil {
		panic(err)
	}
}

// bindRoutes 注册指标接口和 /api 下的业务控制器
func bindRoutes(s *ghttp.Server, controllers ...any) {
	s.BindHandler("GET:/metrics", ghttp.WrapH(metrics.Handler()))
	s.Group("/api", func(group *ghttp.RouterGroup) {
		group.Middleware(MiddlewareHandlerResponse, ghttp.MiddlewareCORS)
		group.Bind(controllers...)
	})
}
