package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	pkg "github.com/akisenoh/skyfence/pkg/internal"
	"github.com/akisenoh/skyfence/pkg/internal/bluesky"
	"github.com/akisenoh/skyfence/pkg/internal/config"
	"github.com/akisenoh/skyfence/pkg/internal/services"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" ____  _          __\n/ ___|| | ___   _/ _| ___ _ __   ___ ___\n\\___ \\| |/ / | | | |_ / _ \\ '_ \\ / __/ _ \\\n ___) |   <| |_| |  _|  __/ | | | (_|  __/\n|____/|_|\\_\\\\__, |_|  \\___|_| |_|\\___\\___|\n            |___/"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("Skyfence"), pkg.AppVersion)
	fmt.Printf("Keeps the social graphs of two Bluesky accounts mutually exclusive\n")
	color.HiBlack("=====================================================\n")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when loading settings.")
	}

	ctx := context.Background()

	log.Info().Msg("Logging into primary and secondary accounts...")
	primaryClient := bluesky.NewClient(cfg.PDSHost)
	if err := primaryClient.CreateSession(ctx, cfg.PrimaryHandle, cfg.PrimaryAppPassword); err != nil {
		log.Fatal().Err(err).Str("account", cfg.PrimaryHandle).Msg("An error occurred when logging into primary account.")
	}
	secondaryClient := bluesky.NewClient(cfg.PDSHost)
	if err := secondaryClient.CreateSession(ctx, cfg.SecondaryHandle, cfg.SecondaryAppPassword); err != nil {
		log.Fatal().Err(err).Str("account", cfg.SecondaryHandle).Msg("An error occurred when logging into secondary account.")
	}

	log.Info().Str("handle", primaryClient.OwnHandle()).Str("did", primaryClient.OwnDID().String()).Msg("Primary account authenticated.")
	log.Info().Str("handle", secondaryClient.OwnHandle()).Str("did", secondaryClient.OwnDID().String()).Msg("Secondary account authenticated.")

	log.Info().Msg("Fetching follows for primary account...")
	primaryFollows, err := services.FetchFollowSet(ctx, primaryClient, primaryClient.OwnDID())
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when fetching follows for primary account.")
	}
	log.Info().Int("count", primaryFollows.Len()).Msg("Fetched follows for primary account.")

	log.Info().Msg("Fetching follows for secondary account...")
	secondaryFollows, err := services.FetchFollowSet(ctx, secondaryClient, secondaryClient.OwnDID())
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when fetching follows for secondary account.")
	}
	log.Info().Int("count", secondaryFollows.Len()).Msg("Fetched follows for secondary account.")

	log.Info().Msg("Fetching blocks for primary account...")
	primaryBlocks, err := services.FetchBlockSet(ctx, primaryClient)
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when fetching blocks for primary account.")
	}
	log.Info().Int("count", primaryBlocks.Len()).Msg("Fetched blocks for primary account.")

	log.Info().Msg("Fetching blocks for secondary account...")
	secondaryBlocks, err := services.FetchBlockSet(ctx, secondaryClient)
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when fetching blocks for secondary account.")
	}
	log.Info().Int("count", secondaryBlocks.Len()).Msg("Fetched blocks for secondary account.")

	primary := &services.Account{
		Client:  primaryClient,
		Handle:  primaryClient.OwnHandle(),
		DID:     primaryClient.OwnDID(),
		Follows: primaryFollows,
		Blocks:  primaryBlocks,
	}
	secondary := &services.Account{
		Client:  secondaryClient,
		Handle:  secondaryClient.OwnHandle(),
		DID:     secondaryClient.OwnDID(),
		Follows: secondaryFollows,
		Blocks:  secondaryBlocks,
	}

	report := services.Reconcile(ctx, primary, secondary)

	fmt.Println()
	switch {
	case report.NothingToDo():
		color.Green("Nothing to do. Accounts are already mutually exclusive.")
	case report.Failed > 0:
		color.Yellow("Sync finished with %d failed writes. Rerun to retry the remainder.", report.Failed)
	default:
		color.Green("Sync complete. Accounts are now mutually exclusive.")
	}
}
