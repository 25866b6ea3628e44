package bluesky

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/akisenoh/skyfence/pkg/internal/models"
)

// Every paginated read asks the server for this many entries at once.
const pageSize = 100

// GraphClient is the capability surface the reconciler needs from a pds.
// The concrete implementation talks XRPC; tests swap in an in-memory fake.
type GraphClient interface {
	CreateSession(ctx context.Context, handle, appPassword string) error
	OwnDID() syntax.DID
	OwnHandle() string
	ListFollows(ctx context.Context, actor syntax.DID, cursor string) ([]string, string, error)
	ListBlocks(ctx context.Context, cursor string) ([]string, string, error)
	ListRecords(ctx context.Context, collection string, cursor string) ([]models.Record, string, error)
	DeleteRecord(ctx context.Context, collection, rkey string) error
	CreateBlock(ctx context.Context, subject syntax.DID) error
}

type Client struct {
	host    string
	client  *http.Client
	session *Session
}

type Session struct {
	DID    syntax.DID
	Handle string

	accessJwt string
}

func NewClient(host string) *Client {
	return &Client{
		host:   strings.TrimSuffix(host, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) CreateSession(ctx context.Context, handle, appPassword string) error {
	payload := map[string]any{
		"identifier": handle,
		"password":   appPassword,
	}

	var out struct {
		Did       string `json:"did"`
		Handle    string `json:"handle"`
		AccessJwt string `json:"accessJwt"`
	}
	if err := c.procedure(ctx, "com.atproto.server.createSession", payload, &out); err != nil {
		return fmt.Errorf("failed to create session for %s: %v", handle, err)
	}

	did, err := syntax.ParseDID(out.Did)
	if err != nil {
		return fmt.Errorf("server returned malformed did %q: %v", out.Did, err)
	}

	c.session = &Session{DID: did, Handle: out.Handle, accessJwt: out.AccessJwt}
	return nil
}

func (c *Client) OwnDID() syntax.DID {
	if c.session == nil {
		return ""
	}
	return c.session.DID
}

func (c *Client) OwnHandle() string {
	if c.session == nil {
		return ""
	}
	return c.session.Handle
}

func (c *Client) ListFollows(ctx context.Context, actor syntax.DID, cursor string) ([]string, string, error) {
	params := url.Values{}
	params.Set("actor", actor.String())

	var out struct {
		Cursor  string        `json:"cursor"`
		Follows []profileView `json:"follows"`
	}
	if err := c.paginatedQuery(ctx, "app.bsky.graph.getFollows", params, cursor, &out); err != nil {
		return nil, "", err
	}

	return profileDIDs(out.Follows), out.Cursor, nil
}

func (c *Client) ListBlocks(ctx context.Context, cursor string) ([]string, string, error) {
	if c.session == nil {
		return nil, "", errNotAuthenticated
	}

	var out struct {
		Cursor string        `json:"cursor"`
		Blocks []profileView `json:"blocks"`
	}
	if err := c.paginatedQuery(ctx, "app.bsky.graph.getBlocks", url.Values{}, cursor, &out); err != nil {
		return nil, "", err
	}

	return profileDIDs(out.Blocks), out.Cursor, nil
}

func (c *Client) ListRecords(ctx context.Context, collection string, cursor string) ([]models.Record, string, error) {
	if c.session == nil {
		return nil, "", errNotAuthenticated
	}

	params := url.Values{}
	params.Set("repo", c.session.DID.String())
	params.Set("collection", collection)

	var out struct {
		Cursor  string `json:"cursor"`
		Records []struct {
			Uri   string `json:"uri"`
			Value struct {
				Subject string `json:"subject"`
			} `json:"value"`
		} `json:"records"`
	}
	if err := c.paginatedQuery(ctx, "com.atproto.repo.listRecords", params, cursor, &out); err != nil {
		return nil, "", err
	}

	records := make([]models.Record, 0, len(out.Records))
	for _, record := range out.Records {
		uri, err := syntax.ParseATURI(record.Uri)
		if err != nil {
			log.Debug().Str("uri", record.Uri).Msg("Skipped record with malformed uri...")
			continue
		}
		records = append(records, models.Record{
			Rkey:    uri.RecordKey().String(),
			Subject: record.Value.Subject,
		})
	}

	return records, out.Cursor, nil
}

func (c *Client) DeleteRecord(ctx context.Context, collection, rkey string) error {
	if c.session == nil {
		return errNotAuthenticated
	}

	payload := map[string]any{
		"repo":       c.session.DID.String(),
		"collection": collection,
		"rkey":       rkey,
	}
	return c.procedure(ctx, "com.atproto.repo.deleteRecord", payload, nil)
}

func (c *Client) CreateBlock(ctx context.Context, subject syntax.DID) error {
	if c.session == nil {
		return errNotAuthenticated
	}

	payload := map[string]any{
		"repo":       c.session.DID.String(),
		"collection": models.KindBlock.Collection(),
		"record": map[string]any{
			"$type":     models.KindBlock.Collection(),
			"subject":   subject.String(),
			"createdAt": time.Now().UTC().Format(time.RFC3339),
		},
	}
	return c.procedure(ctx, "com.atproto.repo.createRecord", payload, nil)
}

var errNotAuthenticated = fmt.Errorf("client has no session, call CreateSession first")

type profileView struct {
	Did string `json:"did"`
}

func profileDIDs(profiles []profileView) []string {
	return lo.Map(profiles, func(item profileView, _ int) string {
		return item.Did
	})
}

func (c *Client) paginatedQuery(ctx context.Context, nsid string, params url.Values, cursor string, out any) error {
	params.Set("limit", strconv.Itoa(pageSize))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return c.query(ctx, nsid, params, out)
}

func (c *Client) query(ctx context.Context, nsid string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/xrpc/%s?%s", c.host, nsid, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %v", nsid, err)
	}

	return c.do(req, out)
}

func (c *Client) procedure(ctx context.Context, nsid string, payload any, out any) error {
	body, err := jsoniter.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body for %s: %v", nsid, err)
	}

	endpoint := fmt.Sprintf("%s/xrpc/%s", c.host, nsid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %v", nsid, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.session != nil {
		req.Header.Set("Authorization", "Bearer "+c.session.accessJwt)
	}

	log.Debug().Str("url", req.URL.String()).Msg("Calling Bluesky XRPC...")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %v", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		return fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := jsoniter.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response JSON: %v", err)
	}

	return nil
}
