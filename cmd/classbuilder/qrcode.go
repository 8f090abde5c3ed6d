package main

import (
	"fmt"
	"os"

	"github.com/areduca/classbuilder/internal/classes"
	"github.com/spf13/cobra"
)

var (
	qrOutput string
	qrSize   int
)

var qrcodeCmd = &cobra.Command{
	Use:   "qrcode <id>",
	Short: "Write the QR code students scan to open a class",
	Args:  cobra.ExactArgs(1),
	RunE:  runQRCode,
}

func init() {
	qrcodeCmd.Flags().StringVarP(&qrOutput, "output", "o", "", "PNG file to write (default <id>.png)")
	qrcodeCmd.Flags().IntVar(&qrSize, "size", classes.DefaultQRSize, "image size in pixels")
}

func runQRCode(cmd *cobra.Command, args []string) error {
	id := args[0]
	return withService(cmd.Context(), func(svc *classes.Service) error {
		if _, err := svc.Get(cmd.Context(), id); err != nil {
			return err
		}
		png, err := svc.QRCode(id, qrSize)
		if err != nil {
			return err
		}

		path := qrOutput
		if path == "" {
			path = id + ".png"
		}
		if err := os.WriteFile(path, png, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", svc.ExperienceURL(id), path)
		return nil
	})
}
