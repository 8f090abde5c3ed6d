package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/areduca/classbuilder/internal/auth"
	"github.com/areduca/classbuilder/internal/config"
	"github.com/areduca/classbuilder/internal/media"
	"github.com/spf13/cobra"
)

var uploadOwner string

var uploadCmd = &cobra.Command{
	Use:   "upload <image>",
	Short: "Store an image and print its asset record",
	Long: `Store an image in the configured media store. With --storage remote
the file is sent to the remote server's upload endpoint instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadOwner, "owner", auth.LocalOwner, "owner id the upload is made as")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	storageCfg := config.GetStorageConfig()
	if storageCfg.Type == "remote" {
		asset, err := remoteClient(storageCfg, config.GetAuthConfig()).Upload(ctx, uploadOwner, path)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), asset)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	store, err := createMediaStore(ctx, config.GetMediaConfig())
	if err != nil {
		return err
	}
	if gcs, ok := store.(*media.GCS); ok {
		defer gcs.Close()
	}

	asset, err := store.Store(ctx, data, filepath.Base(path), "")
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), asset)
}
