package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ts4z/wtapicks/permission"
)

var keyWindows = permission.DefaultKeyWindows

func listKeys(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	storage := openStorage(ctx)
	defer storage.Close()

	config, err := storage.FetchSiteConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetching site config: %w", err)
	}

	now := clock.Now()
	fmt.Printf("Current keys (as of %v):\n\n", now.Format(time.RFC3339))

	for i, key := range config.CookieKeys {
		fmt.Printf("Key %d:\n", i+1)
		fmt.Printf("  Mint window:  %v to %v\n",
			key.Validity.MintFrom.Format(time.RFC3339),
			key.Validity.MintUntil.Format(time.RFC3339))
		fmt.Printf("  Honor until: %v\n",
			key.Validity.HonorUntil.Format(time.RFC3339))
		fmt.Printf("  Status: %v\n\n",
			permission.KeyStatus(now, key.Validity))
	}
	return nil
}

func rotateKeys(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	storage := openStorage(ctx)
	defer storage.Close()

	config, err := storage.FetchSiteConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetching site config: %w", err)
	}

	kp, err := permission.RotateKeys(config, clock.Now(), keyWindows)
	if err != nil {
		return err
	}

	if err := storage.SaveSiteConfig(ctx, config); err != nil {
		return fmt.Errorf("saving updated config: %w", err)
	}

	fmt.Printf("Key rotation complete:\n")
	fmt.Printf("  Start minting: %v\n", kp.Validity.MintFrom.Format(time.RFC3339))
	fmt.Printf("  Stop minting:  %v\n", kp.Validity.MintUntil.Format(time.RFC3339))
	fmt.Printf("  Honor until:   %v\n", kp.Validity.HonorUntil.Format(time.RFC3339))
	return nil
}

func keyCommand() *cobra.Command {
	keyCmd := &cobra.Command{
		Short: "Manage authentication keys",
		Use:   "key",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List current keys and their status",
		RunE:  listKeys,
	}

	rotateCmd := &cobra.Command{
		Use:   "rotate",
		Short: "Remove expired keys and add a new key",
		RunE:  rotateKeys,
	}
	rotateCmd.Flags().DurationVar(&keyWindows.StartOffset, "start-offset", 0, "How long to wait before the key becomes valid (e.g. 24h)")
	rotateCmd.Flags().DurationVar(&keyWindows.MintDuration, "mint-duration", permission.DefaultKeyWindows.MintDuration, "How long the key should be valid for minting")
	rotateCmd.Flags().DurationVar(&keyWindows.HonorOffset, "honor-offset", permission.DefaultKeyWindows.HonorOffset, "How long after minting ends to honor the key")

	keyCmd.AddCommand(listCmd, rotateCmd)
	return keyCmd
}
