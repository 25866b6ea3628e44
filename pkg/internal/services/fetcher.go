package services

import (
	"context"
	"fmt"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/rs/zerolog/log"

	"github.com/akisenoh/skyfence/pkg/internal/bluesky"
	"github.com/akisenoh/skyfence/pkg/internal/models"
)

// FetchFollowSet drains the paginated follow listing of the given actor into
// a set. Any transport error aborts the fetch, a partial set is never
// returned.
func FetchFollowSet(ctx context.Context, client bluesky.GraphClient, actor syntax.DID) (models.DIDSet, error) {
	set := models.DIDSet{}
	var cursor string

	for {
		dids, next, err := client.ListFollows(ctx, actor, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list follows for %s: %v", actor, err)
		}
		collectDIDs(set, dids)
		if next == "" {
			break
		}
		cursor = next
	}

	return set, nil
}

// FetchBlockSet drains the paginated block listing of the authenticated
// account into a set.
func FetchBlockSet(ctx context.Context, client bluesky.GraphClient) (models.DIDSet, error) {
	set := models.DIDSet{}
	var cursor string

	for {
		dids, next, err := client.ListBlocks(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list blocks: %v", err)
		}
		collectDIDs(set, dids)
		if next == "" {
			break
		}
		cursor = next
	}

	return set, nil
}

// Entries with a missing or malformed did are skipped instead of failing the
// whole fetch.
func collectDIDs(set models.DIDSet, raw []string) {
	for _, item := range raw {
		if item == "" {
			continue
		}
		did, err := syntax.ParseDID(item)
		if err != nil {
			log.Debug().Str("did", item).Msg("Skipped entry with malformed did...")
			continue
		}
		set.Add(did)
	}
}
