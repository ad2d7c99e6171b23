package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/olivere/elastic/v7"
	"github.com/zhengshuai-xiao/DupeFinder/internal"
	"github.com/zhengshuai-xiao/DupeFinder/pkg/dupes"
)

var logger = internal.GetLogger("dupefinder_index")

// scrollKeepAlive is how long the server keeps a scroll cursor between
// page fetches.
const scrollKeepAlive = "1m"

// Client talks to the Elasticsearch index the crawler populated. It
// implements dupes.CandidateSource and dupes.BulkTagger.
type Client struct {
	es         *elastic.Client
	scrollSize int
	timeout    time.Duration
}

func NewClient(addr string, scrollSize int, timeout time.Duration) (*Client, error) {
	es, err := elastic.NewClient(
		elastic.SetURL(addr),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch at %s: %w", addr, err)
	}
	return &Client{es: es, scrollSize: scrollSize, timeout: timeout}, nil
}

// fileSource mirrors the _source projection requested from the index.
type fileSource struct {
	Filename     string `json:"filename"`
	FileHash     string `json:"filehash"`
	PathParent   string `json:"path_parent"`
	LastModified string `json:"last_modified"`
	LastAccess   string `json:"last_access"`
}

// candidateQuery builds the bool query selecting candidate records: a
// filesize range, and unless hard-linked files are included, an exact
// hardlinks == 1 filter (files sharing an inode are not real duplicates).
func candidateQuery(crit dupes.Criteria) elastic.Query {
	sizeRange := elastic.NewRangeQuery("filesize").Gte(crit.MinSize).Lte(crit.MaxSize)
	if crit.IncludeHardlinks {
		return elastic.NewBoolQuery().Must(sizeRange)
	}
	return elastic.NewBoolQuery().
		Must(elastic.NewTermQuery("hardlinks", 1)).
		Filter(sizeRange)
}

// ScanCandidates refreshes the index, then streams every matching record
// through fn using cursor-based scroll pagination.
func (c *Client) ScanCandidates(ctx context.Context, crit dupes.Criteria, fn func(rec dupes.FileRecord, filehash string) error) error {
	refreshCtx, cancel := context.WithTimeout(ctx, c.timeout)
	_, err := c.es.Refresh(crit.Index).Do(refreshCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to refresh index %s: %w", crit.Index, err)
	}

	fsc := elastic.NewFetchSourceContext(true).
		Include("filename", "filehash", "path_parent", "last_modified", "last_access")
	scroll := c.es.Scroll(crit.Index).
		Query(candidateQuery(crit)).
		FetchSourceContext(fsc).
		Size(c.scrollSize).
		Scroll(scrollKeepAlive)
	defer func() {
		if err := scroll.Clear(context.Background()); err != nil {
			logger.Debugf("failed to clear scroll cursor: %v", err)
		}
	}()

	for {
		pageCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := scroll.Do(pageCtx)
		cancel()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("scroll on index %s failed: %w", crit.Index, err)
		}
		for _, hit := range res.Hits.Hits {
			var src fileSource
			if err := json.Unmarshal(hit.Source, &src); err != nil {
				logger.Warnf("skipping malformed document %s: %v", hit.Id, err)
				continue
			}
			rec := dupes.FileRecord{
				ID:       hit.Id,
				Filename: recordPath(src.PathParent, src.Filename),
				Atime:    src.LastAccess,
				Mtime:    src.LastModified,
			}
			if err := fn(rec, src.FileHash); err != nil {
				return err
			}
		}
	}
}

// BulkUpdateDupes submits one bulk request carrying a dupe_md5 partial
// update per operation.
func (c *Client) BulkUpdateDupes(ctx context.Context, index string, ops []dupes.DupeUpdate) error {
	if len(ops) == 0 {
		return nil
	}
	bulk := c.es.Bulk()
	for _, op := range ops {
		bulk.Add(elastic.NewBulkUpdateRequest().
			Index(index).
			Id(op.ID).
			Doc(map[string]interface{}{"dupe_md5": op.MD5}))
	}
	bulkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	res, err := bulk.Do(bulkCtx)
	if err != nil {
		return fmt.Errorf("bulk update on index %s failed: %w", index, err)
	}
	if res.Errors {
		return fmt.Errorf("bulk update on index %s reported %d failed operations", index, len(res.Failed()))
	}
	return nil
}

// recordPath rebuilds the absolute path from the parent-path and name
// fields the crawler stored.
func recordPath(parent, name string) string {
	return path.Join(parent, name)
}
