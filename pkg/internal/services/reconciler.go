package services

import (
	"context"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/rs/zerolog/log"

	"github.com/akisenoh/skyfence/pkg/internal/bluesky"
	"github.com/akisenoh/skyfence/pkg/internal/models"
)

// Account bundles an authenticated client with the follow and block sets
// fetched for it at the start of the run. Reconcile mutates the sets in
// memory so later phases see the effect of earlier ones without re-fetching.
type Account struct {
	Client bluesky.GraphClient
	Handle string
	DID    syntax.DID

	Follows models.DIDSet
	Blocks  models.DIDSet
}

// Report summarizes one reconcile run. The four planned counts reflect the
// computed sets before any write was attempted; Failed counts per-item write
// errors, which never abort the run.
type Report struct {
	ConflictingFollows int
	ConflictingBlocks  int
	BlocksOnSecondary  int
	BlocksOnPrimary    int

	Succeeded int
	Failed    int
}

// NothingToDo reports whether all four computed sets were empty, meaning the
// accounts were already mutually exclusive when the run started.
func (r Report) NothingToDo() bool {
	return r.ConflictingFollows == 0 && r.ConflictingBlocks == 0 &&
		r.BlocksOnSecondary == 0 && r.BlocksOnPrimary == 0
}

// Reconcile makes two accounts mutually exclusive in four phases:
//
//  1. Both follow the same account: the follow is revoked on secondary,
//     primary's follow decisions win.
//  2. Both block the same account: the block is revoked on primary,
//     secondary's block decisions win.
//  3. Everything primary follows gets blocked on secondary, except
//     secondary itself and accounts secondary already blocks.
//  4. Symmetric: everything secondary follows gets blocked on primary.
//
// Each phase iterates its set in ascending lexical did order so reruns
// produce the same output. Phases 3 and 4 read the sets as mutated by phases
// 1 and 2, no second fetch happens.
func Reconcile(ctx context.Context, primary, secondary *Account) Report {
	var report Report

	conflictingFollows := primary.Follows.Intersect(secondary.Follows)
	report.ConflictingFollows = conflictingFollows.Len()
	if conflictingFollows.Len() > 0 {
		log.Warn().Int("count", conflictingFollows.Len()).Str("account", secondary.Handle).
			Msg("Found accounts followed by both, revoking follows on secondary...")
		for _, did := range conflictingFollows.Sorted() {
			if err := RemoveRelationship(ctx, secondary.Client, models.KindFollow, did); err != nil {
				report.Failed++
				log.Error().Err(err).Str("did", did.String()).Str("account", secondary.Handle).
					Msg("Failed to unfollow account...")
				continue
			}
			report.Succeeded++
			log.Info().Str("did", did.String()).Str("account", secondary.Handle).Msg("Unfollowed account.")
		}
		secondary.Follows.Subtract(conflictingFollows)
	}

	conflictingBlocks := primary.Blocks.Intersect(secondary.Blocks)
	report.ConflictingBlocks = conflictingBlocks.Len()
	if conflictingBlocks.Len() > 0 {
		log.Warn().Int("count", conflictingBlocks.Len()).Str("account", primary.Handle).
			Msg("Found accounts blocked by both, revoking blocks on primary...")
		for _, did := range conflictingBlocks.Sorted() {
			if err := RemoveRelationship(ctx, primary.Client, models.KindBlock, did); err != nil {
				report.Failed++
				log.Error().Err(err).Str("did", did.String()).Str("account", primary.Handle).
					Msg("Failed to unblock account...")
				continue
			}
			report.Succeeded++
			log.Info().Str("did", did.String()).Str("account", primary.Handle).Msg("Unblocked account.")
		}
		primary.Blocks.Subtract(conflictingBlocks)
	}

	toBlockOnSecondary := primary.Follows.Difference(secondary.Blocks)
	toBlockOnSecondary.Remove(secondary.DID)
	report.BlocksOnSecondary = toBlockOnSecondary.Len()
	if toBlockOnSecondary.Len() > 0 {
		log.Info().Int("count", toBlockOnSecondary.Len()).Str("account", secondary.Handle).
			Msg("Blocking primary's follows on secondary...")
		report.applyBlocks(ctx, secondary, toBlockOnSecondary)
	}

	toBlockOnPrimary := secondary.Follows.Difference(primary.Blocks)
	toBlockOnPrimary.Remove(primary.DID)
	report.BlocksOnPrimary = toBlockOnPrimary.Len()
	if toBlockOnPrimary.Len() > 0 {
		log.Info().Int("count", toBlockOnPrimary.Len()).Str("account", primary.Handle).
			Msg("Blocking secondary's follows on primary...")
		report.applyBlocks(ctx, primary, toBlockOnPrimary)
	}

	return report
}

func (r *Report) applyBlocks(ctx context.Context, account *Account, targets models.DIDSet) {
	for _, did := range targets.Sorted() {
		if err := AddBlock(ctx, account.Client, did); err != nil {
			r.Failed++
			log.Error().Err(err).Str("did", did.String()).Str("account", account.Handle).
				Msg("Failed to block account...")
			continue
		}
		r.Succeeded++
		log.Info().Str("did", did.String()).Str("account", account.Handle).Msg("Blocked account.")
	}
}
