package feed

import (
	"context"

	"github.com/okastrup/tagsync/app/database"
)

// TypeGraphArticle and TypeRSSArticle are the content-type slugs with a
// registered feed source; items of any other type pass through enrichment
// untouched.
const (
	TypeGraphArticle = "graph-article"
	TypeRSSArticle   = "rss-article"
)

// Source loads external content for one item. A nil Content with a nil
// error means the upstream record is gone or unpublished; the item is left
// as-is.
type Source interface {
	Fetch(ctx context.Context, item *database.Item) (*Content, error)
}
