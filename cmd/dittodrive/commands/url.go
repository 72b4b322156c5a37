package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/cli/output"
	"github.com/marmos91/dittodrive/pkg/drive"
)

var urlShowAuth bool

var urlCmd = &cobra.Command{
	Use:   "url <drive> <path>",
	Short: "Print a direct URL for an entry",
	Long: `Print a URL that addresses an entry outside dittodrive, e.g. to stream
a video with an external player.

SMB URLs embed the drive credentials. WebDAV URLs need an Authorization
header, printed with --auth.

Examples:
  dittodrive url nas media/movie.mkv
  dittodrive url nas media/movie.mkv --auth -o json`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeDriveNames,
	RunE:              runURL,
}

func init() {
	urlCmd.Flags().BoolVar(&urlShowAuth, "auth", false, "Also print the Authorization header value (WebDAV)")
}

type resourceURL struct {
	URL           string `json:"url" yaml:"url"`
	Authorization string `json:"authorization,omitempty" yaml:"authorization,omitempty"`
}

func runURL(cmd *cobra.Command, args []string) error {
	d, _, err := cmdutil.OpenDrive(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = drive.Close(d) }()

	entry, err := cmdutil.ResolveEntry(cmd.Context(), d, args[1])
	if err != nil {
		return err
	}
	u, err := d.ResourceURL(entry)
	if err != nil {
		return err
	}

	res := resourceURL{URL: u}
	if urlShowAuth {
		res.Authorization = entry.AuthToken
	}

	p, err := cmdutil.NewPrinter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if p.Format() != output.FormatTable {
		return p.Print(res)
	}
	p.Println(res.URL)
	if res.Authorization != "" {
		p.Printf("Authorization: %s\n", res.Authorization)
	}
	return nil
}
