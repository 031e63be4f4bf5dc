package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/httpapi"
)

var (
	serveAddr      string
	serveBodyLimit string
	serveAccessLog bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the upload, file, link and query API under /api/v1.

Every request except /api/v1/health and the public /api/v1/upload-to/:token
routes must carry the caller identity in the X-Owner-ID header;
authentication is expected to happen in front of this server. Uploads made
through an upload link are stored under the link owner.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveBodyLimit, "body-limit", httpapi.DefaultBodyLimit, "maximum upload size, e.g. 64M")
	serveCmd.Flags().BoolVar(&serveAccessLog, "access-log", false, "log every request")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	server, err := httpapi.NewServer(&httpapi.Ports{
		Ingest: ingestService,
		Query:  queryService,
		Files:  fileService,
		Links:  linkService,
	},
		httpapi.WithBodyLimit(serveBodyLimit),
		httpapi.WithRequestLog(serveAccessLog),
	)
	if err != nil {
		return err
	}

	cmd.Printf("HTTP API listening on %s\n", serveAddr)
	return server.Run(cmd.Context(), serveAddr)
}
