package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sigpull/sigpull/internal/format"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the files stored on the device",
	RunE:  runLs,
}

func init() {
	lsCmd.Flags().IntVar(&flagMaxResults, "max-results", 0, "page size used when enumerating files")
	RootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSIZE\tTYPE\tMODIFIED\tPATH")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			f.ID,
			format.Size(f.FileSize, 1),
			f.MimeType,
			f.Modified.Format("2006-01-02 15:04"),
			f.DownloadPath,
		)
	}
	return w.Flush()
}
