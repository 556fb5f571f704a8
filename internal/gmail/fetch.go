package gmail

import (
	"context"
	"fmt"
	"sync"

	"mailreaper/internal/model"
)

// metadataHeaders is the fixed header subset fetched per message. Keeping
// the list small bounds API cost; everything the classifier, duplicate
// detector and unsubscribe resolver read is here.
var metadataHeaders = []string{
	"Subject", "From", "Date",
	"List-Unsubscribe", "List-Unsubscribe-Post",
	"Message-ID", "Precedence", "List-Id",
}

// List returns up to max message IDs matching the Gmail query string,
// paging internally.
func (c *Client) List(ctx context.Context, query string, max int64) ([]string, error) {
	pageSize := max
	if pageSize > 500 {
		pageSize = 500 // Gmail page-size cap
	}

	var ids []string
	pageToken := ""
	for int64(len(ids)) < max {
		call := c.svc.Users.Messages.List(c.user).Q(query).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	if int64(len(ids)) > max {
		ids = ids[:max]
	}
	return ids, nil
}

// fetchWorkers bounds the metadata fan-out. Fetches are independent and
// read-only, so this is the one place parallelism pays.
const fetchWorkers = 16

// FetchMetadata retrieves the metadata headers for each ID concurrently,
// preserving input order in the returned batch. Messages that fail to
// fetch are dropped (a single bad message must not sink the scan);
// progress, when non-nil, is called as fetches complete.
func (c *Client) FetchMetadata(ctx context.Context, ids []string, progress func(done, total int)) ([]model.MessageRef, error) {
	total := len(ids)
	refs := make([]model.MessageRef, total)

	jobs := make(chan int)
	var done sync.WaitGroup
	var mu sync.Mutex
	completed := 0

	workers := fetchWorkers
	if workers > total {
		workers = total
	}
	done.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer done.Done()
			for i := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				id := ids[i]
				var ref model.MessageRef
				err := withRetry(ctx, func() error {
					msg, err := c.svc.Users.Messages.Get(c.user, id).
						Format("metadata").
						MetadataHeaders(metadataHeaders...).
						Context(ctx).
						Do()
					if err != nil {
						return err
					}
					ref = model.MessageRef{ID: msg.Id}
					if msg.Payload != nil {
						for _, h := range msg.Payload.Headers {
							ref.Headers = append(ref.Headers, model.Header{Name: h.Name, Value: h.Value})
						}
					}
					return nil
				})
				if err == nil {
					refs[i] = ref
				}
				mu.Lock()
				completed++
				n := completed
				mu.Unlock()
				if progress != nil {
					progress(n, total)
				}
			}
		}()
	}

	for i := range ids {
		select {
		case <-ctx.Done():
			close(jobs)
			done.Wait()
			return nil, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	done.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Compact out the failed fetches, keeping input order.
	out := refs[:0]
	for _, r := range refs {
		if r.ID != "" {
			out = append(out, r)
		}
	}
	return out, nil
}
