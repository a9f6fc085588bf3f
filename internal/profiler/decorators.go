package profiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/IshaanNene/wordstalk/internal/engine"
	"github.com/IshaanNene/wordstalk/internal/types"
)

func typeName(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}

// Crawler wraps c so that every Crawl call is timed. MaxParallelism is passed
// through without profiling.
func Crawler(p *Profiler, c engine.Crawler) engine.Crawler {
	return &crawler{p: p, next: c, name: typeName(c)}
}

type crawler struct {
	p    *Profiler
	next engine.Crawler
	name string
}

func (c *crawler) Crawl(ctx context.Context, startingURLs []string) (res *engine.Result, err error) {
	c.p.Profile(c.name, "Crawl", func() {
		res, err = c.next.Crawl(ctx, startingURLs)
	})
	return res, err
}

func (c *crawler) MaxParallelism() int {
	return c.next.MaxParallelism()
}

// Parser wraps pp so that every Parse call is timed.
func Parser(p *Profiler, pp engine.PageParser) engine.PageParser {
	return &parser{p: p, next: pp, name: typeName(pp)}
}

type parser struct {
	p    *Profiler
	next engine.PageParser
	name string
}

func (pp *parser) Parse(url string) (page *types.Page, err error) {
	pp.p.Profile(pp.name, "Parse", func() {
		page, err = pp.next.Parse(url)
	})
	return page, err
}
