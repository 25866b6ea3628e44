package services

import (
	"context"
	"fmt"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/rs/zerolog/log"

	"github.com/akisenoh/skyfence/pkg/internal/bluesky"
	"github.com/akisenoh/skyfence/pkg/internal/models"
)

// RemoveRelationship deletes the authenticated account's follow or block
// record pointing at subject. It scans the account's own records page by page
// and deletes the first match by rkey. Finding no match is not an error, the
// desired end state already holds.
func RemoveRelationship(ctx context.Context, client bluesky.GraphClient, kind models.RelationshipKind, subject syntax.DID) error {
	var cursor string

	for {
		records, next, err := client.ListRecords(ctx, kind.Collection(), cursor)
		if err != nil {
			return fmt.Errorf("failed to list %s records: %v", kind, err)
		}

		for _, record := range records {
			if record.Subject != subject.String() {
				continue
			}
			if err := client.DeleteRecord(ctx, kind.Collection(), record.Rkey); err != nil {
				return fmt.Errorf("failed to delete %s record %s: %v", kind, record.Rkey, err)
			}
			return nil
		}

		if next == "" {
			break
		}
		cursor = next
	}

	// May hide a record deleted by someone else mid-run, surfaced at debug
	// for observability.
	log.Debug().Str("kind", string(kind)).Str("subject", subject.String()).Msg("No record found to delete, already absent.")
	return nil
}

// AddBlock creates a new block record for subject. Calling it twice for the
// same subject creates duplicate records, the reconciler invokes it at most
// once per subject per run.
func AddBlock(ctx context.Context, client bluesky.GraphClient, subject syntax.DID) error {
	if err := client.CreateBlock(ctx, subject); err != nil {
		return fmt.Errorf("failed to create block record: %v", err)
	}
	return nil
}
