package indexer

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Malowking/parlrag/core/common"
	"github.com/Malowking/parlrag/core/config"
	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"github.com/gogf/gf/v2/os/gfile"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const minioScheme = "minio://"

// Source 速记文件来源：本地目录或对象存储前缀，均不递归
type Source interface {
	// List 返回待导入文件的 URI，按名称排序
	List(ctx context.Context) ([]string, error)
	// Load 加载并解析单个文件
	Load(ctx context.Context, uri string) ([]*schema.Document, error)
}

// NewSource 根据位置创建来源，minio://bucket/prefix 使用对象存储，其他视为本地目录
func NewSource(ctx context.Context, location string, extensions []string, mc config.MinioConfig) (Source, error) {
	p, err := newParser(ctx)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(location, minioScheme) {
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(location, minioScheme), "/")
		if bucket == "" {
			return nil, fmt.Errorf("empty bucket in source: %s", location)
		}
		client, err := minio.New(mc.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(mc.AccessKey, mc.SecretKey, ""),
			Secure: mc.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return &minioSource{client: client, bucket: bucket, prefix: prefix, extensions: extensions, parser: p}, nil
	}

	return newLocalSource(ctx, location, extensions, p)
}

type localSource struct {
	dir        string
	extensions []string
	loader     document.Loader
}

func newLocalSource(ctx context.Context, dir string, extensions []string, p parser.Parser) (*localSource, error) {
	fldr, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: false,
		Parser:      p,
	})
	if err != nil {
		return nil, err
	}
	return &localSource{dir: dir, extensions: extensions, loader: fldr}, nil
}

func (s *localSource) List(ctx context.Context) ([]string, error) {
	if !gfile.IsDir(s.dir) {
		return nil, fmt.Errorf("source directory not found: %s", s.dir)
	}
	patterns := make([]string, len(s.extensions))
	for i, ext := range s.extensions {
		patterns[i] = "*" + ext
	}
	files, err := gfile.ScanDirFile(s.dir, strings.Join(patterns, ","), false)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func (s *localSource) Load(ctx context.Context, uri string) ([]*schema.Document, error) {
	docs, err := s.loader.Load(ctx, document.Source{URI: uri})
	if err != nil {
		return nil, err
	}
	return withSourceFile(docs, filepath.Base(uri)), nil
}

type minioSource struct {
	client     *minio.Client
	bucket     string
	prefix     string
	extensions []string
	parser     parser.Parser
}

func (s *minioSource) List(ctx context.Context) ([]string, error) {
	var uris []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: false}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects in %s: %w", s.bucket, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") || !hasExtension(obj.Key, s.extensions) {
			continue
		}
		uris = append(uris, minioScheme+s.bucket+"/"+obj.Key)
	}
	sort.Strings(uris)
	return uris, nil
}

func (s *minioSource) Load(ctx context.Context, uri string) ([]*schema.Document, error) {
	key := strings.TrimPrefix(uri, minioScheme+s.bucket+"/")
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	docs, err := s.parser.Parse(ctx, obj, parser.WithURI(key))
	if err != nil {
		return nil, err
	}
	return withSourceFile(docs, path.Base(key)), nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func withSourceFile(docs []*schema.Document, name string) []*schema.Document {
	for _, doc := range docs {
		if doc.MetaData == nil {
			doc.MetaData = make(map[string]any)
		}
		doc.MetaData[common.MetaSourceFile] = name
	}
	return docs
}
