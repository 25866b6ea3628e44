package services

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/stretchr/testify/require"

	"github.com/akisenoh/skyfence/pkg/internal/models"
)

// fakeGraphClient is an in-memory stand-in for an account's repo. It serves
// paginated reads from its record slices and mutates them on writes, so a
// second reconcile against the same fake behaves like a rerun against a real
// server.
type fakeGraphClient struct {
	did      syntax.DID
	handle   string
	pageSize int

	follows []fakeRecord
	blocks  []fakeRecord

	// rawFollows, when set, overrides the profile listing served by
	// ListFollows, letting tests inject malformed entries.
	rawFollows []string

	// ops logs every write in order, e.g. "delete app.bsky.graph.follow rk1"
	// or "block did:plc:x".
	ops []string

	followPages int
	blockPages  int
	recordPages int

	listFollowsErr error
	listBlocksErr  error
	listRecordsErr error
	deleteErrs     map[string]error // rkey to error
	createErrs     map[string]error // subject to error

	nextRkey int
}

type fakeRecord struct {
	rkey    string
	subject string
}

func newFakeGraphClient(did string) *fakeGraphClient {
	return &fakeGraphClient{
		did:      syntax.DID(did),
		handle:   did + ".test",
		pageSize: 100,
	}
}

func (c *fakeGraphClient) follow(subjects ...string) *fakeGraphClient {
	for _, subject := range subjects {
		c.follows = append(c.follows, fakeRecord{rkey: c.mintRkey(), subject: subject})
	}
	return c
}

func (c *fakeGraphClient) block(subjects ...string) *fakeGraphClient {
	for _, subject := range subjects {
		c.blocks = append(c.blocks, fakeRecord{rkey: c.mintRkey(), subject: subject})
	}
	return c
}

func (c *fakeGraphClient) mintRkey() string {
	c.nextRkey++
	return fmt.Sprintf("3rkey%04d", c.nextRkey)
}

func (c *fakeGraphClient) CreateSession(ctx context.Context, handle, appPassword string) error {
	return nil
}

func (c *fakeGraphClient) OwnDID() syntax.DID {
	return c.did
}

func (c *fakeGraphClient) OwnHandle() string {
	return c.handle
}

func (c *fakeGraphClient) ListFollows(ctx context.Context, actor syntax.DID, cursor string) ([]string, string, error) {
	if c.listFollowsErr != nil {
		return nil, "", c.listFollowsErr
	}
	c.followPages++
	items := c.rawFollows
	if items == nil {
		items = subjects(c.follows)
	}
	return c.page(items, cursor)
}

func (c *fakeGraphClient) ListBlocks(ctx context.Context, cursor string) ([]string, string, error) {
	if c.listBlocksErr != nil {
		return nil, "", c.listBlocksErr
	}
	c.blockPages++
	return c.page(subjects(c.blocks), cursor)
}

func (c *fakeGraphClient) ListRecords(ctx context.Context, collection string, cursor string) ([]models.Record, string, error) {
	if c.listRecordsErr != nil {
		return nil, "", c.listRecordsErr
	}
	c.recordPages++
	source := c.follows
	if collection == models.KindBlock.Collection() {
		source = c.blocks
	}
	start, end, next, err := c.bounds(len(source), cursor)
	if err != nil {
		return nil, "", err
	}
	records := make([]models.Record, 0, end-start)
	for _, record := range source[start:end] {
		records = append(records, models.Record{Rkey: record.rkey, Subject: record.subject})
	}
	return records, next, nil
}

func (c *fakeGraphClient) DeleteRecord(ctx context.Context, collection, rkey string) error {
	if err := c.deleteErrs[rkey]; err != nil {
		return err
	}
	c.ops = append(c.ops, fmt.Sprintf("delete %s %s", collection, rkey))
	source := &c.follows
	if collection == models.KindBlock.Collection() {
		source = &c.blocks
	}
	for i, record := range *source {
		if record.rkey == rkey {
			*source = append((*source)[:i], (*source)[i+1:]...)
			return nil
		}
	}
	return nil
}

func (c *fakeGraphClient) CreateBlock(ctx context.Context, subject syntax.DID) error {
	if err := c.createErrs[subject.String()]; err != nil {
		return err
	}
	c.ops = append(c.ops, "block "+subject.String())
	c.blocks = append(c.blocks, fakeRecord{rkey: c.mintRkey(), subject: subject.String()})
	return nil
}

func (c *fakeGraphClient) page(items []string, cursor string) ([]string, string, error) {
	start, end, next, err := c.bounds(len(items), cursor)
	if err != nil {
		return nil, "", err
	}
	return items[start:end], next, nil
}

func (c *fakeGraphClient) bounds(total int, cursor string) (int, int, string, error) {
	start := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return 0, 0, "", fmt.Errorf("malformed cursor %q: %v", cursor, err)
		}
		start = parsed
	}
	if start > total {
		start = total
	}
	end := start + c.pageSize
	next := ""
	if end >= total {
		end = total
	} else {
		next = strconv.Itoa(end)
	}
	return start, end, next, nil
}

func subjects(records []fakeRecord) []string {
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.subject)
	}
	return out
}

// loadAccount fetches both sets off the fake the same way main does off the
// real client.
func loadAccount(t *testing.T, client *fakeGraphClient) *Account {
	t.Helper()
	ctx := context.Background()

	follows, err := FetchFollowSet(ctx, client, client.OwnDID())
	require.NoError(t, err)
	blocks, err := FetchBlockSet(ctx, client)
	require.NoError(t, err)

	return &Account{
		Client:  client,
		Handle:  client.OwnHandle(),
		DID:     client.OwnDID(),
		Follows: follows,
		Blocks:  blocks,
	}
}
