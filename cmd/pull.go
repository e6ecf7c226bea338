package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sigpull/sigpull/internal/conf"
	"github.com/sigpull/sigpull/internal/device"
	"github.com/sigpull/sigpull/internal/format"
	"github.com/sigpull/sigpull/internal/transfer"
)

var (
	flagOutput     string
	flagMaxResults int
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download every file stored on the device",
	RunE:  runPull,
}

func init() {
	pullCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output directory for downloaded files")
	pullCmd.Flags().IntVar(&flagMaxResults, "max-results", 0, "page size used when enumerating files")
	RootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagOutput != "" {
		cfg.OutputDir = flagOutput
	}
	if flagMaxResults > 0 {
		cfg.MaxResults = flagMaxResults
	}

	ctx := cmd.Context()
	sess, err := newSession(cfg)
	if err != nil {
		return err
	}
	if err := sess.Authenticate(ctx); err != nil {
		return errors.Wrap(err, "failed to authenticate with the device")
	}

	files, err := listAllFiles(ctx, sess, cfg.MaxResults)
	if err != nil {
		return errors.Wrap(err, "failed to retrieve files from the device")
	}
	fmt.Printf("Found %d files stored on the device.\n", len(files))

	fmt.Println("Downloading files...")
	for f, err := range transfer.ForSession(ctx, sess, files, cfg.OutputDir) {
		if err != nil {
			return err
		}
		fmt.Printf("   downloaded (%s): %s\n", format.Size(f.FileSize, 2), f.DownloadPath)
	}
	fmt.Println("All files have been downloaded from the device.")
	return nil
}

func newSession(cfg conf.Config) (*device.Session, error) {
	return device.NewSession(cfg.Address,
		device.WithUsername(cfg.Username),
		device.WithPassword(cfg.Password),
		device.WithTimeout(cfg.Timeout),
	)
}

// listAllFiles drives the single-page FindFiles primitive until the device
// reports no further pages.
func listAllFiles(ctx context.Context, sess *device.Session, pageSize int) ([]device.FileResource, error) {
	var all []device.FileResource
	pageToken := 0
	for {
		page, err := sess.FindFiles(ctx, pageSize, pageToken)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextPageToken == 0 {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}
